package controllers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/auction"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
)

func loadServiceConfig(c *fiber.Ctx) (*models.ServiceConfig, error) {
	buyerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}
	repos := repository.GetGlobalRepositories()
	serviceType, err := repos.ServiceType.GetByCode(c.Params("service"))
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown service type"})
	}
	config, err := repos.ServiceConfig.GetByBuyerAndService(uint(buyerID), serviceType.ID)
	if err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "service config not found"})
	}
	return config, nil
}

// HandleGetMapping returns a buyer's stored mapping configuration for one
// service type.
func HandleGetMapping(c *fiber.Ctx) error {
	config, err := loadServiceConfig(c)
	if config == nil {
		return err
	}
	return c.JSON(fiber.Map{
		"buyer_id":     config.BuyerID,
		"service_type": c.Params("service"),
		"mapping":      config.FieldMappingConfig(),
	})
}

// HandleSaveMapping validates and persists a mapping configuration. Invalid
// configurations are rejected whole; nothing is silently repaired.
func HandleSaveMapping(c *fiber.Ctx) error {
	config, err := loadServiceConfig(c)
	if config == nil {
		return err
	}

	var cfg mapping.Config
	if err := json.Unmarshal(c.Body(), &cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid mapping document"})
	}

	registry := GetServices().Engine.Registry()
	if verrs := cfg.Validate(registry); len(verrs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "validation_error",
			"errors": verrs,
		})
	}

	raw, err := json.Marshal(&cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not encode mapping"})
	}
	config.MappingConfig = models.JSON(raw)

	if err := repository.GetGlobalRepositories().ServiceConfig.Save(config); err != nil {
		log.Errorf("[Mapping] Failed to save mapping for buyer %d: %v", config.BuyerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not save mapping"})
	}
	return c.JSON(fiber.Map{"saved": true, "mappings": len(cfg.Mappings)})
}

// MappingPreviewRequest carries a sample lead for a dry-run through the
// mapping engine.
type MappingPreviewRequest struct {
	Lead    LeadIntakeRequest `json:"lead"`
	Mapping *mapping.Config   `json:"mapping,omitempty"`
}

// HandlePreviewMapping runs a sample lead through the engine without touching
// any buyer endpoint. When the request carries an inline mapping, it is
// previewed instead of the stored one.
func HandlePreviewMapping(c *fiber.Ctx) error {
	config, err := loadServiceConfig(c)
	if config == nil {
		return err
	}

	var req MappingPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	cfg := req.Mapping
	if cfg == nil {
		cfg = config.FieldMappingConfig()
	}

	lead := &models.Lead{
		FirstName:          req.Lead.FirstName,
		LastName:           req.Lead.LastName,
		Email:              req.Lead.Email,
		Phone:              req.Lead.Phone,
		ZipCode:            req.Lead.ZipCode,
		TrustedFormCertID:  req.Lead.TrustedFormCertID,
		TrustedFormCertURL: req.Lead.TrustedFormCertURL,
		JornayaLeadID:      req.Lead.JornayaLeadID,
		TCPAConsent:        req.Lead.TCPAConsent,
		TCPAConsentIP:      req.Lead.TCPAConsentIP,
	}
	if req.Lead.ServiceFields != nil {
		if raw, err := json.Marshal(req.Lead.ServiceFields); err == nil {
			lead.ServiceFields = models.JSON(raw)
		}
	}

	record := auction.LeadRecord(lead)
	engine := GetServices().Engine
	pingPayload, pingErrs := engine.ApplyFieldMappings(cfg, record, mapping.PayloadPing)
	postPayload, postErrs := engine.ApplyFieldMappings(cfg, record, mapping.PayloadPost)

	return c.JSON(fiber.Map{
		"ping":        pingPayload,
		"post":        postPayload,
		"ping_errors": pingErrs,
		"post_errors": postErrs,
	})
}

// HandleListTransforms returns the registered transform ids for admin UIs.
func HandleListTransforms(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"transforms": GetServices().Engine.Registry().IDs()})
}
