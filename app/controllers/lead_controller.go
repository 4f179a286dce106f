package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/auction"
	"github.com/leadaxle/leadaxle/internal/pkg/jobqueue"
	"github.com/leadaxle/leadaxle/internal/pkg/metrics/counter"
	"github.com/leadaxle/leadaxle/internal/pkg/servicelevel"
)

const duplicateWindow = 24 * time.Hour

// LeadIntakeRequest is the public lead submission body.
type LeadIntakeRequest struct {
	ServiceTypeCode string                 `json:"service_type"`
	FirstName       string                 `json:"first_name"`
	LastName        string                 `json:"last_name"`
	Email           string                 `json:"email"`
	Phone           string                 `json:"phone"`
	ZipCode         string                 `json:"zip_code"`
	ServiceFields   map[string]interface{} `json:"service_fields"`

	TrustedFormCertID  string `json:"trusted_form_cert_id"`
	TrustedFormCertURL string `json:"trusted_form_cert_url"`
	JornayaLeadID      string `json:"jornaya_lead_id"`
	TCPAConsent        bool   `json:"tcpa_consent"`
	TCPAConsentIP      string `json:"tcpa_consent_ip"`
}

// HandleLeadIntake accepts a new lead and queues it for auction. Intake keeps
// accepting in degraded mode: when the queue is unavailable the lead is
// auctioned synchronously in the request.
func HandleLeadIntake(c *fiber.Ctx) error {
	var req LeadIntakeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	repos := repository.GetGlobalRepositories()
	serviceType, err := repos.ServiceType.GetByCode(req.ServiceTypeCode)
	if err != nil || !serviceType.Active {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown or inactive service type"})
	}

	lead := &models.Lead{
		Status:             models.LEAD_STATUS_PENDING,
		Disposition:        models.LEAD_DISPOSITION_NEW,
		ServiceTypeID:      serviceType.ID,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Email:              req.Email,
		Phone:              req.Phone,
		ZipCode:            req.ZipCode,
		TrustedFormCertID:  req.TrustedFormCertID,
		TrustedFormCertURL: req.TrustedFormCertURL,
		JornayaLeadID:      req.JornayaLeadID,
		TCPAConsent:        req.TCPAConsent,
		TCPAConsentIP:      req.TCPAConsentIP,
	}
	if req.TCPAConsent {
		now := time.Now()
		lead.TCPAConsentAt = &now
	}
	if req.ServiceFields != nil {
		if raw, err := json.Marshal(req.ServiceFields); err == nil {
			lead.ServiceFields = models.JSON(raw)
		}
	}

	if err := lead.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	if dup, err := repos.Lead.FindRecentDuplicate(req.Email, req.Phone, req.ZipCode, serviceType.ID, duplicateWindow); err == nil && dup != nil {
		lead.Status = models.LEAD_STATUS_DUPLICATE
		_ = counter.Add(counter.StageDuplicate, serviceType.ID)
		if err := repos.Lead.Create(lead); err != nil {
			log.Errorf("[Leads] Failed to store duplicate lead: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not store lead"})
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"lead_id": lead.UUID,
			"status":  lead.Status,
			"message": "duplicate of a recent submission",
		})
	}

	if err := repos.Lead.Create(lead); err != nil {
		log.Errorf("[Leads] Failed to store lead: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not store lead"})
	}
	_ = counter.Add(counter.StageReceived, serviceType.ID)

	svc := GetServices()
	level := svc.Level.Current()

	queued := false
	if level == servicelevel.LevelFull {
		payload := jobqueue.LeadAuctionJobPayload{LeadID: lead.ID}
		if _, err := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeLeadAuction, payload.ToMap()); err != nil {
			log.Warnf("[Leads] Queue unavailable, auctioning lead %d synchronously: %v", lead.ID, err)
		} else {
			queued = true
		}
	}

	if !queued {
		return runAuctionSync(c, lead)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"lead_id": lead.UUID,
		"status":  lead.Status,
	})
}

// runAuctionSync is the degraded-mode path: the auction runs inside the
// intake request.
func runAuctionSync(c *fiber.Ctx, lead *models.Lead) error {
	repos := repository.GetGlobalRepositories()
	if err := repos.Lead.UpdateStatus(lead.ID, models.LEAD_STATUS_PROCESSING, "auction started (synchronous)"); err != nil {
		log.Errorf("[Leads] Failed to transition lead %d: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not start auction"})
	}
	lead.Status = models.LEAD_STATUS_PROCESSING

	svc := GetServices()
	outcome, err := svc.Orchestrator.RunAuction(c.Context(), lead)
	if err != nil {
		log.Errorf("[Leads] Synchronous auction for lead %d failed: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "auction failed"})
	}

	if stage := funnelStage(outcome.Reason); stage != "" {
		_ = counter.Add(stage, lead.ServiceTypeID)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"lead_id": lead.UUID,
		"status":  outcome.Status,
		"reason":  outcome.Reason,
		"message": outcome.Message,
	})
}

func funnelStage(reason string) string {
	return map[string]string{
		auction.OutcomeSold:             counter.StageSold,
		auction.OutcomeNoEligibleBuyers: counter.StageNoBuyers,
		auction.OutcomeNoWinner:         counter.StageNoWinner,
		auction.OutcomeDeliveryFailed:   counter.StageDeliveryFailed,
	}[reason]
}

// HandleGetLead returns one lead with its status history.
func HandleGetLead(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	if uuid == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "uuid missing"})
	}

	repos := repository.GetGlobalRepositories()
	lead, err := repos.Lead.GetByUUID(uuid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "lead not found"})
	}

	history, err := repos.Lead.GetHistory(lead.ID)
	if err != nil {
		log.Warnf("[Leads] Failed to load history for lead %d: %v", lead.ID, err)
	}

	return c.JSON(fiber.Map{
		"lead":    lead,
		"history": history,
	})
}

// HandleGetLeadTransactions returns the ledger rows for one lead (audit replay).
func HandleGetLeadTransactions(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	repos := repository.GetGlobalRepositories()
	lead, err := repos.Lead.GetByUUID(uuid)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "lead not found"})
	}

	txns, err := repos.Transaction.GetByLead(lead.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load transactions"})
	}
	return c.JSON(fiber.Map{"lead_id": lead.UUID, "transactions": txns})
}
