package auction

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
	"github.com/leadaxle/leadaxle/internal/pkg/cache"
	"github.com/leadaxle/leadaxle/internal/pkg/eligibility"
	"github.com/leadaxle/leadaxle/internal/pkg/ledger"
	"github.com/leadaxle/leadaxle/internal/pkg/mapping"
	"github.com/leadaxle/leadaxle/internal/pkg/transform"
)

// In-memory repositories backing a full auction run without a database.

type flowBuyerRepo struct{ buyers map[uint]*models.Buyer }

func (r *flowBuyerRepo) Create(b *models.Buyer) error                   { return nil }
func (r *flowBuyerRepo) Update(b *models.Buyer) error                   { return nil }
func (r *flowBuyerRepo) Delete(id uint) error                           { return nil }
func (r *flowBuyerRepo) Count() (int64, error)                          { return 0, nil }
func (r *flowBuyerRepo) GetActive() ([]models.Buyer, error)             { return nil, nil }
func (r *flowBuyerRepo) List(offset, limit int) ([]models.Buyer, error) { return nil, nil }
func (r *flowBuyerRepo) GetByID(id uint) (*models.Buyer, error) {
	if b, ok := r.buyers[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type flowServiceTypeRepo struct{ st *models.ServiceType }

func (r *flowServiceTypeRepo) Create(s *models.ServiceType) error       { return nil }
func (r *flowServiceTypeRepo) Update(s *models.ServiceType) error       { return nil }
func (r *flowServiceTypeRepo) GetActive() ([]models.ServiceType, error) { return nil, nil }
func (r *flowServiceTypeRepo) GetByID(id uint) (*models.ServiceType, error) {
	if r.st != nil && r.st.ID == id {
		return r.st, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *flowServiceTypeRepo) GetByCode(code string) (*models.ServiceType, error) {
	if r.st != nil && r.st.Code == code {
		return r.st, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type flowZoneRepo struct{ zones []models.ServiceZone }

func (r *flowZoneRepo) GetByServiceAndZip(serviceTypeID uint, zip string) ([]models.ServiceZone, error) {
	var out []models.ServiceZone
	for _, z := range r.zones {
		if z.ServiceTypeID == serviceTypeID && z.ZipCode == zip && z.Active {
			out = append(out, z)
		}
	}
	return out, nil
}
func (r *flowZoneRepo) GetByBuyer(buyerID uint, offset, limit int) ([]models.ServiceZone, error) {
	return nil, nil
}
func (r *flowZoneRepo) BulkUpsert(zones []models.ServiceZone) (int, error) { return 0, nil }
func (r *flowZoneRepo) Delete(id uint) error                               { return nil }
func (r *flowZoneRepo) DeleteByBuyerServiceZips(buyerID, serviceTypeID uint, zipCodes []string) (int64, error) {
	return 0, nil
}
func (r *flowZoneRepo) CountByBuyer(buyerID uint) (int64, error) { return 0, nil }

type flowConfigRepo struct{ configs map[uint]*models.ServiceConfig }

func (r *flowConfigRepo) GetByBuyerAndService(buyerID, serviceTypeID uint) (*models.ServiceConfig, error) {
	if c, ok := r.configs[buyerID]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}
func (r *flowConfigRepo) GetActiveByService(serviceTypeID uint) ([]models.ServiceConfig, error) {
	return nil, nil
}
func (r *flowConfigRepo) Save(c *models.ServiceConfig) error { return nil }
func (r *flowConfigRepo) Delete(id uint) error               { return nil }

type flowLeadRepo struct {
	mu          sync.Mutex
	transitions []string
	soldTo      uint
	soldAmount  float64
}

func (r *flowLeadRepo) Create(lead *models.Lead) error           { return nil }
func (r *flowLeadRepo) GetByID(id uint) (*models.Lead, error)    { return nil, gorm.ErrRecordNotFound }
func (r *flowLeadRepo) GetByUUID(u string) (*models.Lead, error) { return nil, gorm.ErrRecordNotFound }
func (r *flowLeadRepo) List(status string, offset, limit int) ([]models.Lead, error) {
	return nil, nil
}
func (r *flowLeadRepo) UpdateStatus(leadID uint, toStatus, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, toStatus)
	return nil
}
func (r *flowLeadRepo) MarkSold(leadID, buyerID uint, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.soldTo = buyerID
	r.soldAmount = amount
	return nil
}
func (r *flowLeadRepo) FindRecentDuplicate(email, phone, zip string, serviceTypeID uint, window time.Duration) (*models.Lead, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *flowLeadRepo) GetHistory(leadID uint) ([]models.LeadStatusHistory, error) {
	return nil, nil
}

type flowTxnRepo struct {
	mu   sync.Mutex
	rows []*models.Transaction
}

func (r *flowTxnRepo) Create(txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, txn)
	return nil
}
func (r *flowTxnRepo) GetByLead(leadID uint) ([]models.Transaction, error) { return nil, nil }
func (r *flowTxnRepo) Revenue(from, to time.Time, groupBy string) ([]models.RevenueBucket, error) {
	return nil, nil
}
func (r *flowTxnRepo) BuyerPerformance(buyerID uint, from, to time.Time) (*models.BuyerPerformance, error) {
	return nil, nil
}

func (r *flowTxnRepo) byAction(action string) []*models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Transaction
	for _, row := range r.rows {
		if row.ActionType == action {
			out = append(out, row)
		}
	}
	return out
}

// flowFixture wires a full orchestrator over in-memory repos and a set of
// buyer endpoints.
type flowFixture struct {
	orchestrator *Orchestrator
	leads        *flowLeadRepo
	txns         *flowTxnRepo
}

func newFlowFixture(t *testing.T, buyerURLs map[uint]string) *flowFixture {
	t.Helper()

	buyers := map[uint]*models.Buyer{}
	configs := map[uint]*models.ServiceConfig{}
	var zones []models.ServiceZone
	for id, base := range buyerURLs {
		buyers[id] = &models.Buyer{
			ID:      id,
			Name:    "Buyer",
			BaseURL: base,
			Status:  models.BUYER_STATUS_ACTIVE,
		}
		configs[id] = &models.ServiceConfig{
			ID:            id,
			BuyerID:       id,
			ServiceTypeID: 1,
			Active:        true,
			Priority:      10,
		}
		zones = append(zones, models.ServiceZone{
			ID:            id,
			BuyerID:       id,
			ServiceTypeID: 1,
			ZipCode:       "90210",
			Active:        true,
			Priority:      int(id),
		})
	}

	repos := &repository.Repositories{
		Buyer:         &flowBuyerRepo{buyers: buyers},
		ServiceType:   &flowServiceTypeRepo{st: &models.ServiceType{ID: 1, Code: "roofing", Active: true}},
		ServiceZone:   &flowZoneRepo{zones: zones},
		ServiceConfig: &flowConfigRepo{configs: configs},
		Lead:          &flowLeadRepo{},
		Transaction:   &flowTxnRepo{},
	}

	c := cache.NewMemoryCache()
	led := ledger.New(repos.Transaction)
	led.Start()
	t.Cleanup(led.Stop)

	cfg := DefaultConfig()
	cfg.PostBaseDelay = time.Millisecond
	cfg.PostMaxDelay = 5 * time.Millisecond

	engine := mapping.NewEngine(transform.NewRegistry())
	filter := eligibility.NewFilter(repos, c)
	orch := NewOrchestrator(cfg, repos, filter, engine, NewBidClient(), NewBreaker(c), led)

	return &flowFixture{
		orchestrator: orch,
		leads:        repos.Lead.(*flowLeadRepo),
		txns:         repos.Transaction.(*flowTxnRepo),
	}
}

func flowLead() *models.Lead {
	now := time.Now()
	return &models.Lead{
		ID:            1,
		UUID:          "00000000-0000-0000-0000-000000000001",
		ServiceTypeID: 1,
		FirstName:     "Jane",
		LastName:      "Doe",
		Email:         "jane@example.com",
		Phone:         "5551234567",
		ZipCode:       "90210",
		TCPAConsent:   true,
		TCPAConsentAt: &now,
		Status:        models.LEAD_STATUS_PROCESSING,
	}
}

func bidServer(t *testing.T, pingBody string, postStatus int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.Write([]byte(pingBody))
		case "/post":
			w.WriteHeader(postStatus)
			w.Write([]byte(`{"status": "received"}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestRunAuction_SoldToHighestBidder(t *testing.T) {
	low := bidServer(t, `{"bidAmount": 18.00, "accepted": true}`, 200)
	defer low.Close()
	high := bidServer(t, `{"bidAmount": 31.50, "accepted": true}`, 200)
	defer high.Close()

	f := newFlowFixture(t, map[uint]string{1: low.URL, 2: high.URL})

	outcome, err := f.orchestrator.RunAuction(context.Background(), flowLead())
	require.NoError(t, err)

	assert.Equal(t, OutcomeSold, outcome.Reason)
	assert.Equal(t, models.LEAD_STATUS_SOLD, outcome.Status)
	assert.Equal(t, uint(2), outcome.WinningBuyerID)
	assert.Equal(t, 31.50, outcome.WinningBid)
	assert.Equal(t, 2, outcome.PingsSent)
	assert.Equal(t, 2, outcome.ValidBids)

	assert.Equal(t, uint(2), f.leads.soldTo)
	assert.Equal(t, 31.50, f.leads.soldAmount)
}

func TestRunAuction_NoWinnerSendsNoPost(t *testing.T) {
	declined := bidServer(t, `{"bidAmount": 0, "accepted": false}`, 200)
	defer declined.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer broken.Close()

	f := newFlowFixture(t, map[uint]string{1: declined.URL, 2: broken.URL})

	outcome, err := f.orchestrator.RunAuction(context.Background(), flowLead())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoWinner, outcome.Reason)
	assert.Equal(t, models.LEAD_STATUS_FAILED, outcome.Status)
	assert.Equal(t, 2, outcome.PingsSent)
	assert.Equal(t, 0, outcome.ValidBids)

	// Let the ledger drain before inspecting it.
	f.orchestrator.ledger.Stop()
	assert.Len(t, f.txns.byAction(models.TXN_ACTION_PING), 2)
	assert.Empty(t, f.txns.byAction(models.TXN_ACTION_POST), "a lost auction must never POST")
}

func TestRunAuction_NoEligibleBuyers(t *testing.T) {
	f := newFlowFixture(t, map[uint]string{})

	outcome, err := f.orchestrator.RunAuction(context.Background(), flowLead())
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoEligibleBuyers, outcome.Reason)
	assert.Equal(t, models.LEAD_STATUS_FAILED, outcome.Status)
}

func TestRunAuction_DeliveryFailureAfterRetries(t *testing.T) {
	srv := bidServer(t, `{"bidAmount": 12.00, "accepted": true}`, http.StatusInternalServerError)
	defer srv.Close()

	f := newFlowFixture(t, map[uint]string{1: srv.URL})

	outcome, err := f.orchestrator.RunAuction(context.Background(), flowLead())
	require.NoError(t, err)

	assert.Equal(t, OutcomeDeliveryFailed, outcome.Reason)
	assert.Equal(t, models.LEAD_STATUS_DELIVERY_FAILED, outcome.Status)
	assert.Equal(t, uint(1), outcome.WinningBuyerID)

	f.orchestrator.ledger.Stop()
	posts := f.txns.byAction(models.TXN_ACTION_POST)
	assert.Len(t, posts, DefaultConfig().PostMaxAttempts, "every delivery attempt lands in the ledger")
}
