package eligibility

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
)

const (
	zoneCacheTTL   = 15 * time.Minute
	resultCacheTTL = 60 * time.Second
	buyerCacheTTL  = 60 * time.Second

	dailyCounterTTL = 48 * time.Hour
)

// Filter narrows the buyer registry down to the buyers who may receive one
// lead, ranked by eligibility score.
type Filter struct {
	repos *repository.Repositories
	cache cache.Cache
}

func NewFilter(repos *repository.Repositories, c cache.Cache) *Filter {
	return &Filter{repos: repos, cache: c}
}

// DailyCounterKey is the cache key of a buyer's per-service daily lead count.
func DailyCounterKey(buyerID, serviceTypeID uint, day time.Time) string {
	return fmt.Sprintf("daily_leads:%d:%d:%s", buyerID, serviceTypeID, day.Format("2006-01-02"))
}

// IncrementDailyCount bumps the daily counter after a delivered lead.
func (f *Filter) IncrementDailyCount(ctx context.Context, buyerID, serviceTypeID uint) {
	key := DailyCounterKey(buyerID, serviceTypeID, time.Now())
	if _, err := f.cache.Incr(ctx, key, dailyCounterTTL); err != nil {
		log.Warnf("[Eligibility] Failed to increment daily counter %s: %v", key, err)
	}
}

// InvalidateCoverage drops cached zone and result entries touching one
// buyer/service/zip after an administrative write. This is a correctness
// fast-path; TTL expiry remains the backstop.
func (f *Filter) InvalidateCoverage(ctx context.Context, serviceTypeID uint, zipCodes []string) {
	for _, zip := range zipCodes {
		if err := f.cache.Delete(ctx, zoneKey(serviceTypeID, zip)); err != nil {
			log.Warnf("[Eligibility] Failed to invalidate zone cache: %v", err)
		}
		if err := f.cache.DeletePattern(ctx, fmt.Sprintf("eligibility:%d:%s:*", serviceTypeID, zip)); err != nil {
			log.Warnf("[Eligibility] Failed to invalidate result cache: %v", err)
		}
	}
}

func zoneKey(serviceTypeID uint, zip string) string {
	return fmt.Sprintf("zones:%d:%s", serviceTypeID, zip)
}

func optionsHash(opts Options) string {
	canonical := fmt.Sprintf("mp=%d|rmb=%t|thr=%.2f", opts.MaxParticipants, opts.RequireMinBid, opts.MinBidThreshold)
	sum := sha1.Sum([]byte(canonical))
	return hex.EncodeToString(sum[:])[:12]
}

func resultKey(serviceTypeID uint, zip string, snapshot ComplianceSnapshot, opts Options) string {
	compliance := fmt.Sprintf("tf%t-j%t-t%t", snapshot.HasTrustedForm, snapshot.HasJornaya, snapshot.HasTCPAConsent)
	return fmt.Sprintf("eligibility:%d:%s:%s:%s", serviceTypeID, zip, compliance, optionsHash(opts))
}

// GetEligibleBuyers runs the full eligibility pipeline for one lead. The
// complete result is cached briefly; a cache hit short-circuits the whole
// computation.
func (f *Filter) GetEligibleBuyers(ctx context.Context, serviceTypeID uint, zip string, snapshot ComplianceSnapshot, opts Options) (*Result, error) {
	key := resultKey(serviceTypeID, zip, snapshot, opts)
	if raw, err := f.cache.Get(ctx, key); err == nil {
		var cached Result
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			// The serialized result drops buyer credential fields; reload the
			// buyers so callers can authenticate against them.
			for i := range cached.Eligible {
				if buyer, err := f.loadBuyer(ctx, cached.Eligible[i].BuyerID); err == nil && buyer != nil {
					cached.Eligible[i].Buyer = buyer
				}
			}
			return &cached, nil
		}
	}

	result, err := f.compute(ctx, serviceTypeID, zip, snapshot, opts)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(result); err == nil {
		if err := f.cache.Set(ctx, key, string(raw), resultCacheTTL); err != nil {
			log.Warnf("[Eligibility] Failed to cache result: %v", err)
		}
	}
	return result, nil
}

func (f *Filter) compute(ctx context.Context, serviceTypeID uint, zip string, snapshot ComplianceSnapshot, opts Options) (*Result, error) {
	zones, err := f.loadZones(ctx, serviceTypeID, zip)
	if err != nil {
		return nil, err
	}

	result := &Result{TotalFound: len(zones)}
	if len(zones) == 0 {
		// Nothing covers this zip; no exclusions to report either.
		return result, nil
	}

	serviceType, err := f.repos.ServiceType.GetByID(serviceTypeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	serviceActive := serviceType != nil && serviceType.Active

	for _, zone := range zones {
		candidate, excluded := f.evaluateZone(ctx, zone, serviceActive, snapshot, opts)
		if excluded != nil {
			result.ExcludedList = append(result.ExcludedList, *excluded)
			continue
		}
		result.Eligible = append(result.Eligible, *candidate)
	}

	// Descending score, ties by ascending zone priority, then creation time.
	sort.SliceStable(result.Eligible, func(i, j int) bool {
		a, b := result.Eligible[i], result.Eligible[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.ZonePriority != b.ZonePriority {
			return a.ZonePriority < b.ZonePriority
		}
		return a.ZoneCreatedAt < b.ZoneCreatedAt
	})

	if opts.MaxParticipants > 0 && len(result.Eligible) > opts.MaxParticipants {
		for _, dropped := range result.Eligible[opts.MaxParticipants:] {
			result.ExcludedList = append(result.ExcludedList, Excluded{
				BuyerID: dropped.BuyerID,
				Reasons: []string{ReasonMaxParticipantsExceeded},
				Detail:  fmt.Sprintf("auction limited to %d participants", opts.MaxParticipants),
			})
		}
		result.Eligible = result.Eligible[:opts.MaxParticipants]
	}

	result.EligibleCount = len(result.Eligible)
	return result, nil
}

// evaluateZone applies every check to one coverage row and reports either a
// candidate or an exclusion carrying all reasons that applied.
func (f *Filter) evaluateZone(ctx context.Context, zone models.ServiceZone, serviceActive bool, snapshot ComplianceSnapshot, opts Options) (*EligibleBuyer, *Excluded) {
	var reasons []string
	var details []string

	buyer, err := f.loadBuyer(ctx, zone.BuyerID)
	if err != nil || buyer == nil || !buyer.IsActive() || !serviceActive {
		// A buyer deleted from the registry counts as inactive.
		reasons = append(reasons, ReasonBuyerInactive)
	}

	cfg, err := f.repos.ServiceConfig.GetByBuyerAndService(zone.BuyerID, zone.ServiceTypeID)
	if err != nil || cfg == nil || !cfg.Active {
		// Coverage without an active service config is a data-integrity
		// problem, surfaced loudly instead of silently skipped.
		log.Errorf("[Eligibility] Zone %d (buyer=%d service=%d) has no active service config", zone.ID, zone.BuyerID, zone.ServiceTypeID)
		reasons = append(reasons, ReasonConfigMissing)
		cfg = nil
	}

	if zone.MaxLeadsPerDay != nil {
		count, err := f.cache.GetInt(ctx, DailyCounterKey(zone.BuyerID, zone.ServiceTypeID, time.Now()))
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			log.Warnf("[Eligibility] Daily counter read failed for buyer %d: %v", zone.BuyerID, err)
		}
		if count >= *zone.MaxLeadsPerDay {
			reasons = append(reasons, ReasonDailyLimitExceeded)
			details = append(details, fmt.Sprintf("daily cap %d reached (current %d)", *zone.MaxLeadsPerDay, count))
		}
	}

	if cfg != nil {
		if missing := missingCompliance(cfg, snapshot); len(missing) > 0 {
			reasons = append(reasons, ReasonMissingCompliance)
			details = append(details, "missing "+strings.Join(missing, ", "))
		}
	}

	if opts.RequireMinBid {
		maxBid := effectiveMaxBid(zone, cfg)
		if maxBid < opts.MinBidThreshold {
			reasons = append(reasons, ReasonBidTooLow)
			details = append(details, fmt.Sprintf("max bid %.2f below threshold %.2f", maxBid, opts.MinBidThreshold))
		}
	}

	if len(reasons) > 0 {
		return nil, &Excluded{BuyerID: zone.BuyerID, Reasons: reasons, Detail: strings.Join(details, "; ")}
	}

	return &EligibleBuyer{
		BuyerID:       zone.BuyerID,
		Score:         score(zone, cfg),
		ZonePriority:  zone.Priority,
		ZoneMaxBid:    zone.MaxBid,
		ZoneCreatedAt: zone.CreatedAt.UnixNano(),
		Buyer:         buyer,
		Config:        cfg,
	}, nil
}

// missingCompliance lists the unmet requirements by name. TCPA consent is
// always required.
func missingCompliance(cfg *models.ServiceConfig, snapshot ComplianceSnapshot) []string {
	var missing []string
	if !snapshot.HasTCPAConsent {
		missing = append(missing, "TCPA consent")
	}
	if cfg.RequiresTrustedForm && !snapshot.HasTrustedForm {
		missing = append(missing, "TrustedForm certificate")
	}
	if cfg.RequiresJornaya && !snapshot.HasJornaya {
		missing = append(missing, "Jornaya lead id")
	}
	return missing
}

func effectiveMaxBid(zone models.ServiceZone, cfg *models.ServiceConfig) float64 {
	if zone.MaxBid != nil {
		return *zone.MaxBid
	}
	if cfg != nil {
		return cfg.MaxBid
	}
	return 0
}

// score ranks candidates: lower priority numbers and higher max bids score
// higher. Only the resulting ordering matters; the scale is arbitrary.
func score(zone models.ServiceZone, cfg *models.ServiceConfig) float64 {
	s := 1000 - float64(zone.Priority)*10
	bid := effectiveMaxBid(zone, cfg)
	if bid > 100 {
		bid = 100
	}
	s += bid
	if s < 0 {
		s = 0
	}
	return s
}

func (f *Filter) loadZones(ctx context.Context, serviceTypeID uint, zip string) ([]models.ServiceZone, error) {
	key := zoneKey(serviceTypeID, zip)
	if raw, err := f.cache.Get(ctx, key); err == nil {
		var zones []models.ServiceZone
		if err := json.Unmarshal([]byte(raw), &zones); err == nil {
			return zones, nil
		}
	}

	zones, err := f.repos.ServiceZone.GetByServiceAndZip(serviceTypeID, zip)
	if err != nil {
		return nil, fmt.Errorf("load service zones: %w", err)
	}

	if raw, err := json.Marshal(zones); err == nil {
		if err := f.cache.Set(ctx, key, string(raw), zoneCacheTTL); err != nil {
			log.Warnf("[Eligibility] Failed to cache zones: %v", err)
		}
	}
	return zones, nil
}

// cachedBuyer carries the credential fields that the Buyer model hides from
// JSON. They are stored encrypted, so the cache entry never holds plaintext.
type cachedBuyer struct {
	models.Buyer
	AuthCredentials string `json:"auth_credentials"`
	SigningSecret   string `json:"signing_secret"`
}

func (f *Filter) loadBuyer(ctx context.Context, buyerID uint) (*models.Buyer, error) {
	key := fmt.Sprintf("buyer:%d", buyerID)
	if raw, err := f.cache.Get(ctx, key); err == nil {
		var entry cachedBuyer
		if err := json.Unmarshal([]byte(raw), &entry); err == nil {
			buyer := entry.Buyer
			buyer.AuthCredentials = entry.AuthCredentials
			buyer.SigningSecret = entry.SigningSecret
			return &buyer, nil
		}
	}

	buyer, err := f.repos.Buyer.GetByID(buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	entry := cachedBuyer{Buyer: *buyer, AuthCredentials: buyer.AuthCredentials, SigningSecret: buyer.SigningSecret}
	if raw, err := json.Marshal(entry); err == nil {
		if err := f.cache.Set(ctx, key, string(raw), buyerCacheTTL); err != nil {
			log.Warnf("[Eligibility] Failed to cache buyer %d: %v", buyerID, err)
		}
	}
	return buyer, nil
}
