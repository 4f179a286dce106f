package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
)

// leadRepository implements the LeadRepository interface
type leadRepository struct {
	db *gorm.DB
}

// NewLeadRepository creates a new lead repository instance
func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(lead *models.Lead) error {
	return r.db.Create(lead).Error
}

func (r *leadRepository) GetByID(id uint) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.First(&lead, id).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) GetByUUID(uuid string) (*models.Lead, error) {
	var lead models.Lead
	err := r.db.Where("uuid = ?", uuid).First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(status string, offset, limit int) ([]models.Lead, error) {
	var leads []models.Lead
	query := r.db.Offset(offset).Limit(limit).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&leads).Error
	return leads, err
}

// UpdateStatus moves a lead to a new status and writes the history row in the
// same transaction. Every transition carries a reason.
func (r *leadRepository) UpdateStatus(leadID uint, toStatus, reason string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, leadID).Error; err != nil {
			return err
		}
		if lead.Status == toStatus {
			return nil
		}
		if !lead.CanTransitionTo(toStatus) {
			return fmt.Errorf("invalid lead status transition %s -> %s", lead.Status, toStatus)
		}
		fromStatus := lead.Status
		if err := tx.Model(&lead).Update("status", toStatus).Error; err != nil {
			return err
		}
		history := models.LeadStatusHistory{
			LeadID:     lead.ID,
			FromStatus: fromStatus,
			ToStatus:   toStatus,
			Reason:     reason,
		}
		return tx.Create(&history).Error
	})
}

// MarkSold records the winning buyer and amount and transitions to SOLD.
func (r *leadRepository) MarkSold(leadID, buyerID uint, amount float64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, leadID).Error; err != nil {
			return err
		}
		fromStatus := lead.Status
		updates := map[string]interface{}{
			"status":      models.LEAD_STATUS_SOLD,
			"disposition": models.LEAD_DISPOSITION_DELIVERED,
			"sold_to_id":  buyerID,
			"sold_amount": amount,
		}
		if err := tx.Model(&lead).Updates(updates).Error; err != nil {
			return err
		}
		history := models.LeadStatusHistory{
			LeadID:     lead.ID,
			FromStatus: fromStatus,
			ToStatus:   models.LEAD_STATUS_SOLD,
			Reason:     fmt.Sprintf("sold to buyer %d for %.2f", buyerID, amount),
		}
		return tx.Create(&history).Error
	})
}

func (r *leadRepository) FindRecentDuplicate(email, phone, zipCode string, serviceTypeID uint, window time.Duration) (*models.Lead, error) {
	var lead models.Lead
	since := time.Now().Add(-window)
	err := r.db.
		Where("service_type_id = ? AND zip_code = ? AND (email = ? OR phone = ?) AND created_at > ?",
			serviceTypeID, zipCode, email, phone, since).
		First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) GetHistory(leadID uint) ([]models.LeadStatusHistory, error) {
	var history []models.LeadStatusHistory
	err := r.db.Where("lead_id = ?", leadID).Order("created_at ASC").Find(&history).Error
	return history, err
}
