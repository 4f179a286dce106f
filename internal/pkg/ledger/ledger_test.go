package ledger

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadaxle/leadaxle/app/models"
)

type fakeTransactionRepo struct {
	mu       sync.Mutex
	created  []*models.Transaction
	failNext int
}

func (r *fakeTransactionRepo) Create(txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return errors.New("database unavailable")
	}
	r.created = append(r.created, txn)
	return nil
}

func (r *fakeTransactionRepo) GetByLead(leadID uint) ([]models.Transaction, error) { return nil, nil }
func (r *fakeTransactionRepo) Revenue(from, to time.Time, groupBy string) ([]models.RevenueBucket, error) {
	return nil, nil
}
func (r *fakeTransactionRepo) BuyerPerformance(buyerID uint, from, to time.Time) (*models.BuyerPerformance, error) {
	return nil, nil
}

func (r *fakeTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

func TestLedgerPersistsRecords(t *testing.T) {
	repo := &fakeTransactionRepo{}
	led := New(repo)
	led.Start()

	for i := 0; i < 5; i++ {
		led.Record(&models.Transaction{LeadID: uint(i + 1), BuyerID: 1, ActionType: models.TXN_ACTION_PING})
	}
	led.Stop()

	assert.Equal(t, 5, repo.count(), "Stop must drain every buffered record")
}

func TestLedgerParksFailedWrites(t *testing.T) {
	repo := &fakeTransactionRepo{failNext: 1}
	led := New(repo)
	led.Start()

	led.Record(&models.Transaction{LeadID: 1, BuyerID: 1, ActionType: models.TXN_ACTION_POST})
	// Let the writer attempt the record and park it before shutdown; Stop
	// then flushes the parked rows, and by then the repo accepts writes.
	time.Sleep(50 * time.Millisecond)
	led.Stop()

	require.Equal(t, 1, repo.count(), "failed write must be retried, not dropped")
}

func TestLedgerStartStopIdempotent(t *testing.T) {
	led := New(&fakeTransactionRepo{})
	led.Start()
	led.Start()
	led.Stop()
	led.Stop()
}
