package lease

import (
	"time"

	"github.com/shopspring/decimal"
)

type Property struct {
	ID         string    `gorm:"column:id;primaryKey"`
	LandlordID string    `gorm:"column:landlord_id;not null;index"`
	Name       string    `gorm:"column:name;not null"`
	Address    string    `gorm:"column:address"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Property) TableName() string {
	return "properties"
}

type Unit struct {
	ID         string    `gorm:"column:id;primaryKey"`
	PropertyID string    `gorm:"column:property_id;not null;index"`
	UnitNumber string    `gorm:"column:unit_number;not null"`
	Status     string    `gorm:"column:status;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Unit) TableName() string {
	return "units"
}

type Lease struct {
	ID         string          `gorm:"column:id;primaryKey"`
	UnitID     string          `gorm:"column:unit_id;not null;index"`
	TenantID   string          `gorm:"column:tenant_id;not null;index"`
	RentAmount decimal.Decimal `gorm:"column:rent_amount;type:numeric(12,2);not null"`
	Status     string          `gorm:"column:status;not null"`
	StartDate  time.Time       `gorm:"column:start_date;not null"`
	EndDate    *time.Time      `gorm:"column:end_date"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Lease) TableName() string {
	return "leases"
}
