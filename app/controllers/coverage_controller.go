package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
)

// maxZonesPerRequest bounds one bulk upsert body.
const maxZonesPerRequest = 5000

// ZoneEntry is one coverage row in a bulk request.
type ZoneEntry struct {
	ZipCode        string   `json:"zip_code"`
	Priority       int      `json:"priority"`
	MaxLeadsPerDay *int     `json:"max_leads_per_day,omitempty"`
	MinBid         *float64 `json:"min_bid,omitempty"`
	MaxBid         *float64 `json:"max_bid,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

// CoverageUpsertRequest replaces or inserts coverage rows for one buyer and
// service type.
type CoverageUpsertRequest struct {
	ServiceTypeCode string      `json:"service_type"`
	Zones           []ZoneEntry `json:"zones"`
}

// HandleUpsertCoverage bulk-upserts zones for a buyer. Every affected zip has
// its cached eligibility invalidated.
func HandleUpsertCoverage(c *fiber.Ctx) error {
	buyerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	var req CoverageUpsertRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if len(req.Zones) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "zones missing"})
	}
	if len(req.Zones) > maxZonesPerRequest {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "too_large", "message": "too many zones in one request"})
	}

	repos := repository.GetGlobalRepositories()
	if _, err := repos.Buyer.GetByID(uint(buyerID)); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "buyer not found"})
	}
	serviceType, err := repos.ServiceType.GetByCode(req.ServiceTypeCode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown service type"})
	}

	zones := make([]models.ServiceZone, 0, len(req.Zones))
	zips := make([]string, 0, len(req.Zones))
	for i, entry := range req.Zones {
		zone := models.ServiceZone{
			BuyerID:        uint(buyerID),
			ServiceTypeID:  serviceType.ID,
			ZipCode:        entry.ZipCode,
			Priority:       entry.Priority,
			MaxLeadsPerDay: entry.MaxLeadsPerDay,
			MinBid:         entry.MinBid,
			MaxBid:         entry.MaxBid,
			Active:         true,
		}
		if zone.Priority == 0 {
			zone.Priority = 10
		}
		if entry.Active != nil {
			zone.Active = *entry.Active
		}
		if err := zone.Validate(); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":   "validation_error",
				"message": err.Error(),
				"index":   i,
			})
		}
		zones = append(zones, zone)
		zips = append(zips, entry.ZipCode)
	}

	affected, err := repos.ServiceZone.BulkUpsert(zones)
	if err != nil {
		log.Errorf("[Coverage] Bulk upsert for buyer %d failed: %v", buyerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not save zones"})
	}

	GetServices().Filter.InvalidateCoverage(c.Context(), serviceType.ID, zips)

	return c.JSON(fiber.Map{"affected": affected, "zones": len(zones)})
}

// HandleDeleteCoverage removes coverage rows for a buyer by zip list.
func HandleDeleteCoverage(c *fiber.Ctx) error {
	buyerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}

	var req struct {
		ServiceTypeCode string   `json:"service_type"`
		ZipCodes        []string `json:"zip_codes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if len(req.ZipCodes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "zip_codes missing"})
	}

	repos := repository.GetGlobalRepositories()
	serviceType, err := repos.ServiceType.GetByCode(req.ServiceTypeCode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "unknown service type"})
	}

	deleted, err := repos.ServiceZone.DeleteByBuyerServiceZips(uint(buyerID), serviceType.ID, req.ZipCodes)
	if err != nil {
		log.Errorf("[Coverage] Delete for buyer %d failed: %v", buyerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not delete zones"})
	}

	GetServices().Filter.InvalidateCoverage(c.Context(), serviceType.ID, req.ZipCodes)

	return c.JSON(fiber.Map{"deleted": deleted})
}

// HandleListCoverage returns a buyer's coverage rows, paginated.
func HandleListCoverage(c *fiber.Ctx) error {
	buyerID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid buyer id"})
	}
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	repos := repository.GetGlobalRepositories()
	zones, err := repos.ServiceZone.GetByBuyer(uint(buyerID), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not list zones"})
	}
	total, _ := repos.ServiceZone.CountByBuyer(uint(buyerID))

	return c.JSON(fiber.Map{
		"zones":  zones,
		"total":  total,
		"offset": offset,
		"limit":  limit,
	})
}
