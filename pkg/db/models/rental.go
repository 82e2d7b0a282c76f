package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// The rental records below are owned by the property-management CRUD surface;
// the engine only reads them.

type Property struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Property) TableName() string { return "properties" }

type Unit struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PropertyID uuid.UUID `gorm:"column:property_id;type:uuid;not null;index"`
	Label      string    `gorm:"column:label;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Unit) TableName() string { return "units" }

type Tenant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID `gorm:"column:owner_id;type:uuid;not null;index"`
	FullName  string    `gorm:"column:full_name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Tenant) TableName() string { return "tenants" }

type Lease struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UnitID      uuid.UUID         `gorm:"column:unit_id;type:uuid;not null;index"`
	TenantID    uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	Status      enums.LeaseStatus `gorm:"column:status;not null"`
	StartDate   time.Time         `gorm:"column:start_date;not null"`
	EndDate     time.Time         `gorm:"column:end_date;not null"`
	MonthlyRent decimal.Decimal   `gorm:"column:monthly_rent;type:numeric(12,2);not null"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Lease) TableName() string { return "leases" }

type Payment struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	LeaseID   uuid.UUID           `gorm:"column:lease_id;type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Paid      decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0"`
	Status    enums.PaymentStatus `gorm:"column:status;not null"`
	DueDate   time.Time           `gorm:"column:due_date;not null;index"`
	PaidAt    *time.Time          `gorm:"column:paid_at"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }

func (p *Property) BeforeCreate(*gorm.DB) error { return ensureID(&p.ID) }
func (u *Unit) BeforeCreate(*gorm.DB) error     { return ensureID(&u.ID) }
func (t *Tenant) BeforeCreate(*gorm.DB) error   { return ensureID(&t.ID) }
func (l *Lease) BeforeCreate(*gorm.DB) error    { return ensureID(&l.ID) }
func (p *Payment) BeforeCreate(*gorm.DB) error  { return ensureID(&p.ID) }

func ensureID(id *uuid.UUID) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	return nil
}
