package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
)

// RetryDelivery re-attempts the POST to a previously selected winner. It is
// called from the delivery-retry queue after an auction ended in
// DELIVERY_FAILED; the queue owns backoff and the dead-letter path, so a
// single attempt is made here and failure is returned as an error.
func (o *Orchestrator) RetryDelivery(ctx context.Context, leadID, buyerID uint, winningBid float64) error {
	lead, err := o.repos.Lead.GetByID(leadID)
	if err != nil {
		return fmt.Errorf("load lead %d: %w", leadID, err)
	}
	if lead.Status != models.LEAD_STATUS_DELIVERY_FAILED {
		log.Infof("[Auction] Lead %d no longer awaiting delivery (status %s), skipping retry", leadID, lead.Status)
		return nil
	}

	buyer, err := o.repos.Buyer.GetByID(buyerID)
	if err != nil {
		return fmt.Errorf("load buyer %d: %w", buyerID, err)
	}
	cfg, err := o.repos.ServiceConfig.GetByBuyerAndService(buyerID, lead.ServiceTypeID)
	if err != nil {
		return fmt.Errorf("load service config for buyer %d: %w", buyerID, err)
	}

	record := LeadRecord(lead)
	payload, transformErrs := o.engine.ApplyFieldMappings(cfg.FieldMappingConfig(), record, mapping.PayloadPost)
	for _, te := range transformErrs {
		log.Warnf("[Auction] Lead %s delivery retry payload: %v", lead.UUID, te)
	}
	payload["winningBid"] = winningBid
	payload["auctionTimestamp"] = time.Now().UTC().Format(time.RFC3339)

	participant := eligibility.EligibleBuyer{BuyerID: buyerID, Buyer: buyer, Config: cfg}
	result := o.client.Post(ctx, buyer, cfg.ResolvePostURL(buyer), cfg.ResolvePostTimeout(buyer), payload)
	o.recordAttempt(lead, participant, models.TXN_ACTION_POST, payload, result)

	if !result.OK() {
		o.breaker.OnFailure(ctx, buyer)
		return fmt.Errorf("delivery retry to buyer %d failed (%s): %w", buyerID, result.FailCode, result.Err)
	}

	o.breaker.OnSuccess(ctx, buyer)
	if err := o.repos.Lead.MarkSold(lead.ID, buyerID, winningBid); err != nil {
		return fmt.Errorf("mark lead %d sold: %w", lead.ID, err)
	}
	o.filter.IncrementDailyCount(ctx, buyerID, lead.ServiceTypeID)
	log.Infof("[Auction] Lead %s delivered to buyer %d on retry", lead.UUID, buyerID)
	return nil
}
