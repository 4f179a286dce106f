package controllers

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/credentials"
)

// BuyerRequest is the admin create/update body. Credentials arrive as a
// plaintext map and are encrypted before they touch the database.
type BuyerRequest struct {
	Name                   string            `json:"name"`
	BaseURL                string            `json:"base_url"`
	AuthType               string            `json:"auth_type"`
	AuthCredentials        map[string]string `json:"auth_credentials,omitempty"`
	Status                 string            `json:"status"`
	PingTimeoutMs          int               `json:"ping_timeout_ms"`
	PostTimeoutMs          int               `json:"post_timeout_ms"`
	RateLimitPerMinute     int               `json:"rate_limit_per_minute"`
	MaxConsecutiveFailures int               `json:"max_consecutive_failures"`
	CooldownSeconds        int               `json:"cooldown_seconds"`
	RequiresSignature      bool              `json:"requires_signature"`
	SigningSecret          string            `json:"signing_secret,omitempty"`
}

func (r *BuyerRequest) applyDefaults() {
	if r.AuthType == "" {
		r.AuthType = models.AUTH_TYPE_NONE
	}
	if r.Status == "" {
		r.Status = models.BUYER_STATUS_ACTIVE
	}
	if r.PingTimeoutMs == 0 {
		r.PingTimeoutMs = 3000
	}
	if r.PostTimeoutMs == 0 {
		r.PostTimeoutMs = 10000
	}
	if r.MaxConsecutiveFailures == 0 {
		r.MaxConsecutiveFailures = 3
	}
	if r.CooldownSeconds == 0 {
		r.CooldownSeconds = 300
	}
}

func (r *BuyerRequest) toModel(buyer *models.Buyer) error {
	buyer.Name = r.Name
	buyer.BaseURL = r.BaseURL
	buyer.AuthType = r.AuthType
	buyer.Status = r.Status
	buyer.PingTimeoutMs = r.PingTimeoutMs
	buyer.PostTimeoutMs = r.PostTimeoutMs
	buyer.RateLimitPerMinute = r.RateLimitPerMinute
	buyer.MaxConsecutiveFailures = r.MaxConsecutiveFailures
	buyer.CooldownSeconds = r.CooldownSeconds
	buyer.RequiresSignature = r.RequiresSignature

	if r.AuthCredentials != nil {
		raw, err := json.Marshal(r.AuthCredentials)
		if err != nil {
			return err
		}
		encrypted, err := credentials.Encrypt(string(raw))
		if err != nil {
			return err
		}
		buyer.AuthCredentials = encrypted
	}
	if r.SigningSecret != "" {
		encrypted, err := credentials.Encrypt(r.SigningSecret)
		if err != nil {
			return err
		}
		buyer.SigningSecret = encrypted
	}
	return nil
}

// HandleCreateBuyer registers a new buyer.
func HandleCreateBuyer(c *fiber.Ctx) error {
	var req BuyerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	req.applyDefaults()

	buyer := &models.Buyer{}
	if err := req.toModel(buyer); err != nil {
		log.Errorf("[Buyers] Failed to seal credentials: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not store credentials"})
	}
	if err := buyer.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	repos := repository.GetGlobalRepositories()
	if err := repos.Buyer.Create(buyer); err != nil {
		log.Errorf("[Buyers] Failed to create buyer: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not create buyer"})
	}
	return c.Status(fiber.StatusCreated).JSON(buyer)
}

// HandleUpdateBuyer updates a buyer. Credential fields are only replaced when
// present in the request.
func HandleUpdateBuyer(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	repos := repository.GetGlobalRepositories()
	buyer, err := repos.Buyer.GetByID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "buyer not found"})
	}

	req := BuyerRequest{
		Name:                   buyer.Name,
		BaseURL:                buyer.BaseURL,
		AuthType:               buyer.AuthType,
		Status:                 buyer.Status,
		PingTimeoutMs:          buyer.PingTimeoutMs,
		PostTimeoutMs:          buyer.PostTimeoutMs,
		RateLimitPerMinute:     buyer.RateLimitPerMinute,
		MaxConsecutiveFailures: buyer.MaxConsecutiveFailures,
		CooldownSeconds:        buyer.CooldownSeconds,
		RequiresSignature:      buyer.RequiresSignature,
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}

	if err := req.toModel(buyer); err != nil {
		log.Errorf("[Buyers] Failed to seal credentials: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not store credentials"})
	}
	if err := buyer.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_error", "message": err.Error()})
	}

	if err := repos.Buyer.Update(buyer); err != nil {
		log.Errorf("[Buyers] Failed to update buyer %d: %v", buyer.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not update buyer"})
	}
	return c.JSON(buyer)
}

// HandleGetBuyer returns one buyer. Credentials never appear in responses.
func HandleGetBuyer(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	buyer, err := repository.GetGlobalRepositories().Buyer.GetByID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "buyer not found"})
	}
	return c.JSON(buyer)
}

// HandleListBuyers returns a paginated buyer list.
func HandleListBuyers(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	repos := repository.GetGlobalRepositories()
	buyers, err := repos.Buyer.List(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not list buyers"})
	}
	total, _ := repos.Buyer.Count()

	return c.JSON(fiber.Map{
		"buyers": buyers,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}

// HandleDeleteBuyer soft-deletes a buyer. Existing transaction rows keep the
// buyer id for audit.
func HandleDeleteBuyer(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	if err := repository.GetGlobalRepositories().Buyer.Delete(uint(id)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not delete buyer"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
