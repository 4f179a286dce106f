package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/auction"
	"github.com/leadaxle/leadaxle/internal/pkg/metrics/counter"
)

// RegisterProcessors wires the auction pipeline into the queue. Called once
// at startup before the queue workers start.
func RegisterProcessors(q *Queue, orchestrator *auction.Orchestrator, repos *repository.Repositories) {
	q.RegisterHandler(JobTypeLeadAuction, leadAuctionHandler(q, orchestrator, repos))
	q.RegisterHandler(JobTypeDeliveryRetry, deliveryRetryHandler(orchestrator))
}

// leadAuctionHandler runs the full auction for a queued lead. A failed
// delivery enqueues a dedicated retry job rather than retrying the whole
// auction.
func leadAuctionHandler(q *Queue, orchestrator *auction.Orchestrator, repos *repository.Repositories) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := LeadAuctionJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid lead auction payload: %w", err)
		}

		lead, err := repos.Lead.GetByID(payload.LeadID)
		if err != nil {
			return fmt.Errorf("load lead %d: %w", payload.LeadID, err)
		}
		if lead.Status != models.LEAD_STATUS_PENDING {
			log.Infof("[JobQueue] Lead %d already %s, skipping auction", lead.ID, lead.Status)
			return nil
		}

		if err := repos.Lead.UpdateStatus(lead.ID, models.LEAD_STATUS_PROCESSING, "auction started"); err != nil {
			return fmt.Errorf("transition lead %d to processing: %w", lead.ID, err)
		}
		lead.Status = models.LEAD_STATUS_PROCESSING

		outcome, err := orchestrator.RunAuction(ctx, lead)
		if err != nil {
			return fmt.Errorf("auction for lead %d: %w", lead.ID, err)
		}

		log.Infof("[JobQueue] Lead %d auction finished: %s (%s)", lead.ID, outcome.Reason, outcome.Message)
		recordFunnel(outcome.Reason, lead.ServiceTypeID)

		if outcome.Reason == auction.OutcomeDeliveryFailed {
			retry := DeliveryRetryJobPayload{
				LeadID:     lead.ID,
				BuyerID:    outcome.WinningBuyerID,
				WinningBid: outcome.WinningBid,
			}
			if _, err := q.EnqueueJob(JobTypeDeliveryRetry, retry.ToMap()); err != nil {
				log.Errorf("[JobQueue] Failed to enqueue delivery retry for lead %d: %v", lead.ID, err)
			}
		}
		return nil
	}
}

func recordFunnel(reason string, serviceTypeID uint) {
	stage := map[string]string{
		auction.OutcomeSold:             counter.StageSold,
		auction.OutcomeNoEligibleBuyers: counter.StageNoBuyers,
		auction.OutcomeNoWinner:         counter.StageNoWinner,
		auction.OutcomeDeliveryFailed:   counter.StageDeliveryFailed,
	}[reason]
	if stage == "" {
		return
	}
	if err := counter.Add(stage, serviceTypeID); err != nil {
		log.Warnf("[JobQueue] Failed to record funnel counter %s: %v", stage, err)
	}
}

// deliveryRetryHandler re-attempts a failed POST. Queue retry mechanics own
// the backoff; after MaxRetries the job lands in the dead-letter list for
// manual intervention.
func deliveryRetryHandler(orchestrator *auction.Orchestrator) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := DeliveryRetryJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid delivery retry payload: %w", err)
		}
		return orchestrator.RetryDelivery(ctx, payload.LeadID, payload.BuyerID, payload.WinningBid)
	}
}
