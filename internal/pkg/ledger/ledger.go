package ledger

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/leadaxle/leadaxle/app/models"
	"github.com/leadaxle/leadaxle/app/repository"
)

const (
	defaultBufferSize = 1024
	retryInterval     = 30 * time.Second
)

// Ledger records every PING/POST attempt without ever blocking the auction
// critical path. Writes ride a buffered channel into a background worker;
// failed writes are parked and retried out of band, never silently dropped.
type Ledger struct {
	repo    repository.TransactionRepository
	ch      chan *models.Transaction
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	parked  []*models.Transaction
	running bool
}

func New(repo repository.TransactionRepository) *Ledger {
	return &Ledger{
		repo:   repo,
		ch:     make(chan *models.Transaction, defaultBufferSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the write worker and the out-of-band retry loop.
func (l *Ledger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true

	l.wg.Add(2)
	go l.writer()
	go l.retrier()
}

// Stop drains the buffer and stops the workers.
func (l *Ledger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	close(l.stopCh)
	l.wg.Wait()
}

// Record appends one transaction. It never blocks: when the buffer is full
// the row is parked for the retry loop instead.
func (l *Ledger) Record(txn *models.Transaction) {
	select {
	case l.ch <- txn:
	default:
		log.Warnf("[Ledger] Buffer full, parking transaction for lead %d buyer %d", txn.LeadID, txn.BuyerID)
		l.park(txn)
	}
}

func (l *Ledger) park(txn *models.Transaction) {
	l.mu.Lock()
	l.parked = append(l.parked, txn)
	l.mu.Unlock()
}

func (l *Ledger) write(txn *models.Transaction) {
	if err := l.repo.Create(txn); err != nil {
		log.Errorf("[Ledger] Failed to persist transaction (lead=%d buyer=%d action=%s): %v", txn.LeadID, txn.BuyerID, txn.ActionType, err)
		l.park(txn)
	}
}

func (l *Ledger) writer() {
	defer l.wg.Done()
	for {
		select {
		case txn := <-l.ch:
			l.write(txn)
		case <-l.stopCh:
			// Drain whatever is still buffered before exiting.
			for {
				select {
				case txn := <-l.ch:
					l.write(txn)
				default:
					return
				}
			}
		}
	}
}

func (l *Ledger) retrier() {
	defer l.wg.Done()
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.flushParked()
		case <-l.stopCh:
			l.flushParked()
			return
		}
	}
}

func (l *Ledger) flushParked() {
	l.mu.Lock()
	pending := l.parked
	l.parked = nil
	l.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Infof("[Ledger] Retrying %d parked transactions", len(pending))
	for _, txn := range pending {
		l.write(txn)
	}
}
