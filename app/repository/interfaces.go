package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/leadaxle/leadaxle/app/models"
)

// BuyerRepository defines the interface for buyer registry operations
type BuyerRepository interface {
	Create(buyer *models.Buyer) error
	GetByID(id uint) (*models.Buyer, error)
	GetActive() ([]models.Buyer, error)
	Update(buyer *models.Buyer) error
	Delete(id uint) error
	List(offset, limit int) ([]models.Buyer, error)
	Count() (int64, error)
}

// ServiceTypeRepository defines the interface for service type lookups
type ServiceTypeRepository interface {
	Create(serviceType *models.ServiceType) error
	GetByID(id uint) (*models.ServiceType, error)
	GetByCode(code string) (*models.ServiceType, error)
	GetActive() ([]models.ServiceType, error)
	Update(serviceType *models.ServiceType) error
}

// ServiceZoneRepository defines the interface for coverage records
type ServiceZoneRepository interface {
	GetByServiceAndZip(serviceTypeID uint, zipCode string) ([]models.ServiceZone, error)
	GetByBuyer(buyerID uint, offset, limit int) ([]models.ServiceZone, error)
	BulkUpsert(zones []models.ServiceZone) (int, error)
	Delete(id uint) error
	DeleteByBuyerServiceZips(buyerID, serviceTypeID uint, zipCodes []string) (int64, error)
	CountByBuyer(buyerID uint) (int64, error)
}

// ServiceConfigRepository defines the interface for per-buyer-service configs
type ServiceConfigRepository interface {
	GetByBuyerAndService(buyerID, serviceTypeID uint) (*models.ServiceConfig, error)
	GetActiveByService(serviceTypeID uint) ([]models.ServiceConfig, error)
	Save(config *models.ServiceConfig) error
	Delete(id uint) error
}

// LeadRepository defines the interface for lead lifecycle operations
type LeadRepository interface {
	Create(lead *models.Lead) error
	GetByID(id uint) (*models.Lead, error)
	GetByUUID(uuid string) (*models.Lead, error)
	List(status string, offset, limit int) ([]models.Lead, error)
	UpdateStatus(leadID uint, toStatus, reason string) error
	MarkSold(leadID, buyerID uint, amount float64) error
	FindRecentDuplicate(email, phone, zipCode string, serviceTypeID uint, window time.Duration) (*models.Lead, error)
	GetHistory(leadID uint) ([]models.LeadStatusHistory, error)
}

// TransactionRepository defines the append-only ledger store
type TransactionRepository interface {
	Create(txn *models.Transaction) error
	GetByLead(leadID uint) ([]models.Transaction, error)
	Revenue(from, to time.Time, groupBy string) ([]models.RevenueBucket, error)
	BuyerPerformance(buyerID uint, from, to time.Time) (*models.BuyerPerformance, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Buyer         BuyerRepository
	ServiceType   ServiceTypeRepository
	ServiceZone   ServiceZoneRepository
	ServiceConfig ServiceConfigRepository
	Lead          LeadRepository
	Transaction   TransactionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Buyer:         NewBuyerRepository(db),
		ServiceType:   NewServiceTypeRepository(db),
		ServiceZone:   NewServiceZoneRepository(db),
		ServiceConfig: NewServiceConfigRepository(db),
		Lead:          NewLeadRepository(db),
		Transaction:   NewTransactionRepository(db),
	}
}
