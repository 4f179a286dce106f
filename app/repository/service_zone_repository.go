package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/leadaxle/leadaxle/app/models"
)

// serviceZoneRepository implements the ServiceZoneRepository interface
type serviceZoneRepository struct {
	db *gorm.DB
}

// NewServiceZoneRepository creates a new service zone repository instance
func NewServiceZoneRepository(db *gorm.DB) ServiceZoneRepository {
	return &serviceZoneRepository{db: db}
}

func (r *serviceZoneRepository) GetByServiceAndZip(serviceTypeID uint, zipCode string) ([]models.ServiceZone, error) {
	var zones []models.ServiceZone
	err := r.db.
		Where("service_type_id = ? AND zip_code = ? AND active = ?", serviceTypeID, zipCode, true).
		Order("priority ASC, created_at ASC").
		Find(&zones).Error
	return zones, err
}

func (r *serviceZoneRepository) GetByBuyer(buyerID uint, offset, limit int) ([]models.ServiceZone, error) {
	var zones []models.ServiceZone
	err := r.db.
		Where("buyer_id = ?", buyerID).
		Offset(offset).Limit(limit).
		Order("service_type_id ASC, zip_code ASC").
		Find(&zones).Error
	return zones, err
}

// BulkUpsert inserts or updates coverage rows on the (buyer, service, zip)
// unique key and returns the number of rows written.
func (r *serviceZoneRepository) BulkUpsert(zones []models.ServiceZone) (int, error) {
	if len(zones) == 0 {
		return 0, nil
	}
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "buyer_id"}, {Name: "service_type_id"}, {Name: "zip_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active", "priority", "max_leads_per_day", "min_bid", "max_bid", "updated_at",
		}),
	}).Create(&zones).Error
	if err != nil {
		return 0, err
	}
	return len(zones), nil
}

func (r *serviceZoneRepository) Delete(id uint) error {
	return r.db.Delete(&models.ServiceZone{}, id).Error
}

func (r *serviceZoneRepository) DeleteByBuyerServiceZips(buyerID, serviceTypeID uint, zipCodes []string) (int64, error) {
	if len(zipCodes) == 0 {
		return 0, nil
	}
	result := r.db.
		Where("buyer_id = ? AND service_type_id = ? AND zip_code IN ?", buyerID, serviceTypeID, zipCodes).
		Delete(&models.ServiceZone{})
	return result.RowsAffected, result.Error
}

func (r *serviceZoneRepository) CountByBuyer(buyerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ServiceZone{}).Where("buyer_id = ?", buyerID).Count(&count).Error
	return count, err
}

// serviceConfigRepository implements the ServiceConfigRepository interface
type serviceConfigRepository struct {
	db *gorm.DB
}

// NewServiceConfigRepository creates a new service config repository instance
func NewServiceConfigRepository(db *gorm.DB) ServiceConfigRepository {
	return &serviceConfigRepository{db: db}
}

func (r *serviceConfigRepository) GetByBuyerAndService(buyerID, serviceTypeID uint) (*models.ServiceConfig, error) {
	var config models.ServiceConfig
	err := r.db.
		Where("buyer_id = ? AND service_type_id = ?", buyerID, serviceTypeID).
		First(&config).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *serviceConfigRepository) GetActiveByService(serviceTypeID uint) ([]models.ServiceConfig, error) {
	var configs []models.ServiceConfig
	err := r.db.
		Where("service_type_id = ? AND active = ?", serviceTypeID, true).
		Find(&configs).Error
	return configs, err
}

func (r *serviceConfigRepository) Save(config *models.ServiceConfig) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "buyer_id"}, {Name: "service_type_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active", "priority", "min_bid", "max_bid", "requires_trusted_form",
			"requires_jornaya", "ping_url", "post_url", "ping_timeout_ms",
			"post_timeout_ms", "mapping_config", "updated_at",
		}),
	}).Create(config).Error
}

func (r *serviceConfigRepository) Delete(id uint) error {
	return r.db.Delete(&models.ServiceConfig{}, id).Error
}
