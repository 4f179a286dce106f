package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
)

// transactionRepository implements the TransactionRepository interface.
// Transactions are append-only; there is deliberately no Update or Delete.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(txn *models.Transaction) error {
	return r.db.Create(txn).Error
}

func (r *transactionRepository) GetByLead(leadID uint) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.Where("lead_id = ?", leadID).Order("created_at ASC").Find(&txns).Error
	return txns, err
}

// Revenue sums bid amounts over successful POST deliveries, grouped by buyer
// or by day.
func (r *transactionRepository) Revenue(from, to time.Time, groupBy string) ([]models.RevenueBucket, error) {
	var groupExpr string
	switch groupBy {
	case "buyer":
		groupExpr = "CAST(buyer_id AS CHAR)"
	case "day":
		groupExpr = "DATE_FORMAT(created_at, '%Y-%m-%d')"
	default:
		return nil, fmt.Errorf("unsupported revenue grouping %q", groupBy)
	}

	var buckets []models.RevenueBucket
	err := r.db.Model(&models.Transaction{}).
		Select(groupExpr+" AS `key`, COUNT(*) AS count, COALESCE(SUM(bid_amount), 0) AS revenue").
		Where("action_type = ? AND status = ? AND created_at BETWEEN ? AND ?",
			models.TXN_ACTION_POST, models.TXN_STATUS_SUCCESS, from, to).
		Group(groupExpr).
		Order("`key` ASC").
		Scan(&buckets).Error
	return buckets, err
}

func (r *transactionRepository) BuyerPerformance(buyerID uint, from, to time.Time) (*models.BuyerPerformance, error) {
	perf := &models.BuyerPerformance{BuyerID: buyerID}

	base := r.db.Model(&models.Transaction{}).
		Where("buyer_id = ? AND created_at BETWEEN ? AND ?", buyerID, from, to)

	if err := base.Session(&gorm.Session{}).
		Where("action_type = ?", models.TXN_ACTION_PING).
		Count(&perf.TotalPings).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).
		Where("action_type = ?", models.TXN_ACTION_POST).
		Count(&perf.TotalPosts).Error; err != nil {
		return nil, err
	}

	var stats struct {
		Total     int64
		Successes int64
		AvgMs     float64
		Revenue   float64
	}
	err := base.Session(&gorm.Session{}).
		Select("COUNT(*) AS total, " +
			"SUM(CASE WHEN status = 'SUCCESS' THEN 1 ELSE 0 END) AS successes, " +
			"COALESCE(AVG(response_time_ms), 0) AS avg_ms, " +
			"COALESCE(SUM(CASE WHEN action_type = 'POST' AND status = 'SUCCESS' THEN bid_amount ELSE 0 END), 0) AS revenue").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		perf.SuccessRate = float64(stats.Successes) / float64(stats.Total)
	}
	perf.AvgResponseTimeMs = stats.AvgMs
	perf.TotalRevenue = stats.Revenue
	return perf, nil
}
