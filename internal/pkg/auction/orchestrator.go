package auction

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
	"github.com/leadaxle/leadaxle/internal/pkg/ledger"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
)

// Auction outcome reason codes.
const (
	OutcomeSold             = "SOLD"
	OutcomeNoEligibleBuyers = "NO_ELIGIBLE_BUYERS"
	OutcomeNoWinner         = "NO_WINNER"
	OutcomeDeliveryFailed   = "DELIVERY_FAILED"
)

// Config tunes the orchestrator. Values come from the environment at startup.
type Config struct {
	MaxConcurrentPings int
	AuctionDeadline    time.Duration
	PostMaxAttempts    int
	PostBaseDelay      time.Duration
	PostMaxDelay       time.Duration
	PostMultiplier     float64
}

func DefaultConfig() Config {
	return Config{
		MaxConcurrentPings: 25,
		AuctionDeadline:    10 * time.Second,
		PostMaxAttempts:    3,
		PostBaseDelay:      500 * time.Millisecond,
		PostMaxDelay:       8 * time.Second,
		PostMultiplier:     2,
	}
}

// Outcome is the observable result of one auction run: a status plus a
// machine-readable reason and a human-readable message.
type Outcome struct {
	LeadID         uint     `json:"lead_id"`
	Status         string   `json:"status"`
	Reason         string   `json:"reason"`
	Message        string   `json:"message"`
	WinningBuyerID uint     `json:"winning_buyer_id,omitempty"`
	WinningBid     float64  `json:"winning_bid,omitempty"`
	PingsSent      int      `json:"pings_sent"`
	ValidBids      int      `json:"valid_bids"`
}

// pingAttempt is one settled PING: the participant plus its call result.
type pingAttempt struct {
	participant eligibility.EligibleBuyer
	result      *CallResult
}

// Orchestrator drives the PING → select-winner → POST protocol for one lead.
type Orchestrator struct {
	cfg       Config
	repos     *repository.Repositories
	filter    *eligibility.Filter
	engine    *mapping.Engine
	client    *BidClient
	breaker   *Breaker
	ledger    *ledger.Ledger
	semaphore chan struct{}
}

func NewOrchestrator(cfg Config, repos *repository.Repositories, filter *eligibility.Filter, engine *mapping.Engine, client *BidClient, breaker *Breaker, led *ledger.Ledger) *Orchestrator {
	if cfg.MaxConcurrentPings <= 0 {
		cfg.MaxConcurrentPings = DefaultConfig().MaxConcurrentPings
	}
	return &Orchestrator{
		cfg:       cfg,
		repos:     repos,
		filter:    filter,
		engine:    engine,
		client:    client,
		breaker:   breaker,
		ledger:    led,
		semaphore: make(chan struct{}, cfg.MaxConcurrentPings),
	}
}

// RunAuction executes one full auction for a lead and returns the outcome.
// Per-buyer failures never abort the run; every outcome is observable.
func (o *Orchestrator) RunAuction(ctx context.Context, lead *models.Lead) (*Outcome, error) {
	if o.cfg.AuctionDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.AuctionDeadline)
		defer cancel()
	}

	snapshot := eligibility.SnapshotFromLead(lead)
	eligible, err := o.filter.GetEligibleBuyers(ctx, lead.ServiceTypeID, lead.ZipCode, snapshot, eligibility.Options{})
	if err != nil {
		return nil, fmt.Errorf("eligibility filter: %w", err)
	}

	participants := o.admitted(ctx, eligible.Eligible)
	if len(participants) == 0 {
		o.transition(lead, models.LEAD_STATUS_FAILED, "no eligible buyers for service/zip")
		return &Outcome{
			LeadID:  lead.ID,
			Status:  models.LEAD_STATUS_FAILED,
			Reason:  OutcomeNoEligibleBuyers,
			Message: fmt.Sprintf("no eligible buyers for service %d in zip %s", lead.ServiceTypeID, lead.ZipCode),
		}, nil
	}

	attempts := o.fanOutPings(ctx, lead, participants)

	winner := selectWinner(attempts)
	if winner == nil {
		o.transition(lead, models.LEAD_STATUS_FAILED, "no valid accepted bids")
		return &Outcome{
			LeadID:    lead.ID,
			Status:    models.LEAD_STATUS_FAILED,
			Reason:    OutcomeNoWinner,
			Message:   "all PING attempts failed or no buyer accepted",
			PingsSent: len(attempts),
			ValidBids: countValidBids(attempts),
		}, nil
	}

	o.transition(lead, models.LEAD_STATUS_AUCTIONED, fmt.Sprintf("winner selected: buyer %d at %.2f", winner.participant.BuyerID, *winner.result.Bid.BidAmount))

	return o.deliver(ctx, lead, winner, len(attempts), countValidBids(attempts))
}

// admitted drops participants whose circuit breaker is open.
func (o *Orchestrator) admitted(ctx context.Context, candidates []eligibility.EligibleBuyer) []eligibility.EligibleBuyer {
	var out []eligibility.EligibleBuyer
	for _, candidate := range candidates {
		if candidate.Buyer == nil || candidate.Config == nil {
			continue
		}
		if !o.breaker.Allow(ctx, candidate.Buyer) {
			log.Infof("[Auction] Buyer %d skipped: circuit open", candidate.BuyerID)
			continue
		}
		out = append(out, candidate)
	}
	return out
}

// fanOutPings solicits bids concurrently, bounded by the process-wide
// concurrency cap. It returns only after every attempt reached a terminal
// state; there is no first-bid-wins race.
func (o *Orchestrator) fanOutPings(ctx context.Context, lead *models.Lead, participants []eligibility.EligibleBuyer) []pingAttempt {
	record := LeadRecord(lead)
	attempts := make([]pingAttempt, len(participants))

	var wg sync.WaitGroup
	for i, participant := range participants {
		wg.Add(1)
		go func(i int, p eligibility.EligibleBuyer) {
			defer wg.Done()
			o.semaphore <- struct{}{}
			defer func() { <-o.semaphore }()

			attempts[i] = pingAttempt{participant: p, result: o.pingBuyer(ctx, lead, record, p)}
		}(i, participant)
	}
	wg.Wait()

	return attempts
}

func (o *Orchestrator) pingBuyer(ctx context.Context, lead *models.Lead, record map[string]interface{}, p eligibility.EligibleBuyer) *CallResult {
	cfg := p.Config.FieldMappingConfig()
	payload, transformErrs := o.engine.ApplyFieldMappings(cfg, record, mapping.PayloadPing)
	for _, te := range transformErrs {
		log.Warnf("[Auction] Lead %s buyer %d ping payload: %v", lead.UUID, p.BuyerID, te)
	}

	url := p.Config.ResolvePingURL(p.Buyer)
	timeout := p.Config.ResolvePingTimeout(p.Buyer)
	result := o.client.Ping(ctx, p.Buyer, url, timeout, payload)

	o.recordAttempt(lead, p, models.TXN_ACTION_PING, payload, result)

	if result.OK() {
		o.breaker.OnSuccess(ctx, p.Buyer)
	} else {
		o.breaker.OnFailure(ctx, p.Buyer)
		log.Infof("[Auction] Lead %s buyer %d ping excluded (%s): %v", lead.UUID, p.BuyerID, result.FailCode, result.Err)
	}
	return result
}

// selectWinner picks the highest accepted bid; ties break by lower zone
// priority, then earlier response.
func selectWinner(attempts []pingAttempt) *pingAttempt {
	var winner *pingAttempt
	for i := range attempts {
		attempt := &attempts[i]
		if !attempt.result.OK() || attempt.result.Bid == nil || !*attempt.result.Bid.Accepted {
			continue
		}
		if winner == nil {
			winner = attempt
			continue
		}
		a, b := *attempt.result.Bid.BidAmount, *winner.result.Bid.BidAmount
		switch {
		case a > b:
			winner = attempt
		case a == b && attempt.participant.ZonePriority < winner.participant.ZonePriority:
			winner = attempt
		case a == b && attempt.participant.ZonePriority == winner.participant.ZonePriority &&
			attempt.result.ResponseTime < winner.result.ResponseTime:
			winner = attempt
		}
	}
	return winner
}

func countValidBids(attempts []pingAttempt) int {
	n := 0
	for i := range attempts {
		if attempts[i].result.OK() && attempts[i].result.Bid != nil && *attempts[i].result.Bid.Accepted {
			n++
		}
	}
	return n
}

// deliver builds and sends the POST payload to the winner with backoff
// retries. Delivery failure never re-opens the auction in the same run.
func (o *Orchestrator) deliver(ctx context.Context, lead *models.Lead, winner *pingAttempt, pingsSent, validBids int) (*Outcome, error) {
	p := winner.participant
	winningBid := *winner.result.Bid.BidAmount

	record := LeadRecord(lead)
	cfg := p.Config.FieldMappingConfig()
	payload, transformErrs := o.engine.ApplyFieldMappings(cfg, record, mapping.PayloadPost)
	for _, te := range transformErrs {
		log.Warnf("[Auction] Lead %s buyer %d post payload: %v", lead.UUID, p.BuyerID, te)
	}
	payload["winningBid"] = winningBid
	payload["auctionTimestamp"] = time.Now().UTC().Format(time.RFC3339)

	url := p.Config.ResolvePostURL(p.Buyer)
	timeout := p.Config.ResolvePostTimeout(p.Buyer)

	var result *CallResult
	delay := o.cfg.PostBaseDelay
	for attempt := 0; attempt < o.cfg.PostMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			delay = time.Duration(float64(delay) * o.cfg.PostMultiplier)
			if delay > o.cfg.PostMaxDelay {
				delay = o.cfg.PostMaxDelay
			}
		}

		// Delivery outlives the auction deadline: cancelling a sold lead
		// mid-send would lose revenue.
		result = o.client.Post(context.WithoutCancel(ctx), p.Buyer, url, timeout, payload)
		o.recordAttempt(lead, p, models.TXN_ACTION_POST, payload, result)
		if result.OK() {
			break
		}
		log.Warnf("[Auction] Lead %s delivery attempt %d/%d to buyer %d failed (%s): %v",
			lead.UUID, attempt+1, o.cfg.PostMaxAttempts, p.BuyerID, result.FailCode, result.Err)
	}

	if !result.OK() {
		o.breaker.OnFailure(ctx, p.Buyer)
		o.transition(lead, models.LEAD_STATUS_DELIVERY_FAILED,
			fmt.Sprintf("delivery to buyer %d failed after %d attempts: %s", p.BuyerID, o.cfg.PostMaxAttempts, result.FailCode))
		return &Outcome{
			LeadID:         lead.ID,
			Status:         models.LEAD_STATUS_DELIVERY_FAILED,
			Reason:         OutcomeDeliveryFailed,
			Message:        fmt.Sprintf("POST to buyer %d failed: %s", p.BuyerID, result.FailCode),
			WinningBuyerID: p.BuyerID,
			WinningBid:     winningBid,
			PingsSent:      pingsSent,
			ValidBids:      validBids,
		}, nil
	}

	o.breaker.OnSuccess(ctx, p.Buyer)
	if err := o.repos.Lead.MarkSold(lead.ID, p.BuyerID, winningBid); err != nil {
		log.Errorf("[Auction] Lead %d delivered but could not be marked sold: %v", lead.ID, err)
	}
	o.filter.IncrementDailyCount(ctx, p.BuyerID, lead.ServiceTypeID)

	return &Outcome{
		LeadID:         lead.ID,
		Status:         models.LEAD_STATUS_SOLD,
		Reason:         OutcomeSold,
		Message:        fmt.Sprintf("delivered to buyer %d at %.2f", p.BuyerID, winningBid),
		WinningBuyerID: p.BuyerID,
		WinningBid:     winningBid,
		PingsSent:      pingsSent,
		ValidBids:      validBids,
	}, nil
}

// recordAttempt writes one ledger row. The ledger is asynchronous; this
// never blocks the auction.
func (o *Orchestrator) recordAttempt(lead *models.Lead, p eligibility.EligibleBuyer, action string, payload map[string]interface{}, result *CallResult) {
	txn := &models.Transaction{
		LeadID:          lead.ID,
		BuyerID:         p.BuyerID,
		ActionType:      action,
		ResponseTimeMs:  result.ResponseTime.Milliseconds(),
		TrustedFormSent: lead.HasTrustedForm(),
		JornayaSent:     lead.HasJornaya(),
	}

	if raw, err := json.Marshal(payload); err == nil {
		txn.RequestPayload = models.JSON(raw)
	}
	if len(result.Body) > 0 && json.Valid(result.Body) {
		txn.ResponsePayload = models.JSON(result.Body)
	}

	switch {
	case result.OK():
		txn.Status = models.TXN_STATUS_SUCCESS
	case result.FailCode == FailTimeout:
		txn.Status = models.TXN_STATUS_TIMEOUT
	default:
		txn.Status = models.TXN_STATUS_FAILED
	}
	if result.Err != nil {
		txn.ErrorMessage = result.Err.Error()
	}
	if result.Bid != nil && result.Bid.BidAmount != nil {
		txn.BidAmount = result.Bid.BidAmount
	}

	o.ledger.Record(txn)
}

func (o *Orchestrator) transition(lead *models.Lead, toStatus, reason string) {
	if err := o.repos.Lead.UpdateStatus(lead.ID, toStatus, reason); err != nil {
		log.Errorf("[Auction] Lead %d status transition to %s failed: %v", lead.ID, toStatus, err)
	}
}
