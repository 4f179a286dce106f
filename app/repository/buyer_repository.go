package repository

import (
	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
)

// buyerRepository implements the BuyerRepository interface
type buyerRepository struct {
	db *gorm.DB
}

// NewBuyerRepository creates a new buyer repository instance
func NewBuyerRepository(db *gorm.DB) BuyerRepository {
	return &buyerRepository{db: db}
}

func (r *buyerRepository) Create(buyer *models.Buyer) error {
	return r.db.Create(buyer).Error
}

func (r *buyerRepository) GetByID(id uint) (*models.Buyer, error) {
	var buyer models.Buyer
	err := r.db.First(&buyer, id).Error
	if err != nil {
		return nil, err
	}
	return &buyer, nil
}

func (r *buyerRepository) GetActive() ([]models.Buyer, error) {
	var buyers []models.Buyer
	err := r.db.Where("status = ?", models.BUYER_STATUS_ACTIVE).Find(&buyers).Error
	return buyers, err
}

func (r *buyerRepository) Update(buyer *models.Buyer) error {
	return r.db.Save(buyer).Error
}

func (r *buyerRepository) Delete(id uint) error {
	return r.db.Delete(&models.Buyer{}, id).Error
}

func (r *buyerRepository) List(offset, limit int) ([]models.Buyer, error) {
	var buyers []models.Buyer
	err := r.db.Offset(offset).Limit(limit).Order("id ASC").Find(&buyers).Error
	return buyers, err
}

func (r *buyerRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Buyer{}).Count(&count).Error
	return count, err
}

// serviceTypeRepository implements the ServiceTypeRepository interface
type serviceTypeRepository struct {
	db *gorm.DB
}

// NewServiceTypeRepository creates a new service type repository instance
func NewServiceTypeRepository(db *gorm.DB) ServiceTypeRepository {
	return &serviceTypeRepository{db: db}
}

func (r *serviceTypeRepository) Create(serviceType *models.ServiceType) error {
	return r.db.Create(serviceType).Error
}

func (r *serviceTypeRepository) GetByID(id uint) (*models.ServiceType, error) {
	var serviceType models.ServiceType
	err := r.db.First(&serviceType, id).Error
	if err != nil {
		return nil, err
	}
	return &serviceType, nil
}

func (r *serviceTypeRepository) GetByCode(code string) (*models.ServiceType, error) {
	var serviceType models.ServiceType
	err := r.db.Where("code = ?", code).First(&serviceType).Error
	if err != nil {
		return nil, err
	}
	return &serviceType, nil
}

func (r *serviceTypeRepository) GetActive() ([]models.ServiceType, error) {
	var serviceTypes []models.ServiceType
	err := r.db.Where("active = ?", true).Find(&serviceTypes).Error
	return serviceTypes, err
}

func (r *serviceTypeRepository) Update(serviceType *models.ServiceType) error {
	return r.db.Save(serviceType).Error
}
