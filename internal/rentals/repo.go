// Package rentals reads the property, lease and payment records maintained by
// the CRUD side of the application.
package rentals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/leasewise/leasewise-backend/internal/repo"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	"github.com/leasewise/leasewise-backend/pkg/enums"
)

// PortfolioName labels reports that are not scoped to a single property.
const PortfolioName = "All Properties"

// Scope restricts a query to an owner's portfolio or to one of their properties.
type Scope struct {
	OwnerID    uuid.UUID
	PropertyID *uuid.UUID
}

// Contact is the reachable identity of a tenant.
type Contact struct {
	TenantID uuid.UUID
	FullName string
	Email    *string
	Phone    *string
}

// OverduePayment is an unpaid payment past its due date.
type OverduePayment struct {
	PaymentID    uuid.UUID
	LeaseID      uuid.UUID
	Amount       decimal.Decimal
	Paid         decimal.Decimal
	DueDate      time.Time
	PropertyName string
	UnitLabel    string
	Contact
}

// Outstanding is the unpaid remainder of the payment.
func (p OverduePayment) Outstanding() decimal.Decimal {
	return p.Amount.Sub(p.Paid)
}

// ExpiringLease is an active lease approaching its end date.
type ExpiringLease struct {
	LeaseID      uuid.UUID
	EndDate      time.Time
	PropertyName string
	UnitLabel    string
	Contact
}

type Repository interface {
	OwnsProperty(ctx context.Context, ownerID, propertyID uuid.UUID) (bool, error)
	PropertyName(ctx context.Context, scope Scope) (string, error)
	PaymentsDueBetween(ctx context.Context, scope Scope, from, to time.Time) ([]models.Payment, error)
	LeasesOverlapping(ctx context.Context, scope Scope, from, to time.Time) ([]models.Lease, error)
	CountUnits(ctx context.Context, scope Scope) (int64, error)
	OverduePayments(ctx context.Context, now time.Time) ([]OverduePayment, error)
	LeasesEndingBetween(ctx context.Context, from, to time.Time) ([]ExpiringLease, error)
}

type repositoryImpl struct {
	repo.Base
}

func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) OwnsProperty(ctx context.Context, ownerID, propertyID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.Property{}).
		Where("id = ? AND owner_id = ?", propertyID, ownerID).
		Count(&count).Error
	return count > 0, err
}

// PropertyName resolves the display name of the scope. Portfolio scopes and
// properties that no longer exist resolve to PortfolioName.
func (r *repositoryImpl) PropertyName(ctx context.Context, scope Scope) (string, error) {
	if scope.PropertyID == nil {
		return PortfolioName, nil
	}
	var property models.Property
	err := r.DB(ctx).
		Where("id = ? AND owner_id = ?", *scope.PropertyID, scope.OwnerID).
		First(&property).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return PortfolioName, nil
	}
	if err != nil {
		return "", err
	}
	return property.Name, nil
}

func (r *repositoryImpl) PaymentsDueBetween(ctx context.Context, scope Scope, from, to time.Time) ([]models.Payment, error) {
	var rows []models.Payment
	q := r.DB(ctx).
		Model(&models.Payment{}).
		Select("payments.*").
		Joins("JOIN leases ON leases.id = payments.lease_id").
		Joins("JOIN units ON units.id = leases.unit_id")
	err := scoped(q, scope).
		Where("payments.due_date >= ? AND payments.due_date < ?", from.UTC(), to.UTC()).
		Order("payments.due_date ASC").
		Find(&rows).Error
	return rows, err
}

// LeasesOverlapping returns non-draft leases whose term intersects [from, to).
func (r *repositoryImpl) LeasesOverlapping(ctx context.Context, scope Scope, from, to time.Time) ([]models.Lease, error) {
	var rows []models.Lease
	q := r.DB(ctx).
		Model(&models.Lease{}).
		Select("leases.*").
		Joins("JOIN units ON units.id = leases.unit_id")
	err := scoped(q, scope).
		Where("leases.status <> ?", enums.LeaseStatusDraft).
		Where("leases.start_date < ? AND leases.end_date >= ?", to.UTC(), from.UTC()).
		Order("leases.start_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountUnits(ctx context.Context, scope Scope) (int64, error) {
	var count int64
	err := scoped(r.DB(ctx).Model(&models.Unit{}), scope).
		Count(&count).Error
	return count, err
}

// OverduePayments lists pending or partially paid payments due before now,
// across all owners.
func (r *repositoryImpl) OverduePayments(ctx context.Context, now time.Time) ([]OverduePayment, error) {
	var rows []overdueRow
	err := r.DB(ctx).
		Table("payments").
		Select(`payments.id AS payment_id, payments.lease_id, payments.amount, payments.amount_paid AS paid,
			payments.due_date, properties.name AS property_name, units.label AS unit_label,
			tenants.id AS tenant_id, tenants.full_name, tenants.email, tenants.phone`).
		Joins("JOIN leases ON leases.id = payments.lease_id").
		Joins("JOIN units ON units.id = leases.unit_id").
		Joins("JOIN properties ON properties.id = units.property_id").
		Joins("JOIN tenants ON tenants.id = leases.tenant_id").
		Where("payments.status IN ?", []enums.PaymentStatus{enums.PaymentStatusPending, enums.PaymentStatusPartial}).
		Where("payments.due_date < ?", now.UTC()).
		Order("payments.due_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]OverduePayment, 0, len(rows))
	for _, row := range rows {
		out = append(out, OverduePayment{
			PaymentID:    row.PaymentID,
			LeaseID:      row.LeaseID,
			Amount:       row.Amount,
			Paid:         row.Paid,
			DueDate:      row.DueDate,
			PropertyName: row.PropertyName,
			UnitLabel:    row.UnitLabel,
			Contact:      row.contact(),
		})
	}
	return out, nil
}

// LeasesEndingBetween lists active leases whose end date falls in [from, to].
func (r *repositoryImpl) LeasesEndingBetween(ctx context.Context, from, to time.Time) ([]ExpiringLease, error) {
	var rows []expiringRow
	err := r.DB(ctx).
		Table("leases").
		Select(`leases.id AS lease_id, leases.end_date, properties.name AS property_name, units.label AS unit_label,
			tenants.id AS tenant_id, tenants.full_name, tenants.email, tenants.phone`).
		Joins("JOIN units ON units.id = leases.unit_id").
		Joins("JOIN properties ON properties.id = units.property_id").
		Joins("JOIN tenants ON tenants.id = leases.tenant_id").
		Where("leases.status = ?", enums.LeaseStatusActive).
		Where("leases.end_date >= ? AND leases.end_date <= ?", from.UTC(), to.UTC()).
		Order("leases.end_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]ExpiringLease, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExpiringLease{
			LeaseID:      row.LeaseID,
			EndDate:      row.EndDate,
			PropertyName: row.PropertyName,
			UnitLabel:    row.UnitLabel,
			Contact:      row.contact(),
		})
	}
	return out, nil
}

// scoped joins properties onto a query whose joins already expose units.
func scoped(db *gorm.DB, scope Scope) *gorm.DB {
	q := db.Joins("JOIN properties ON properties.id = units.property_id").
		Where("properties.owner_id = ?", scope.OwnerID)
	if scope.PropertyID != nil {
		q = q.Where("properties.id = ?", *scope.PropertyID)
	}
	return q
}

type overdueRow struct {
	PaymentID    uuid.UUID
	LeaseID      uuid.UUID
	Amount       decimal.Decimal
	Paid         decimal.Decimal
	DueDate      time.Time
	PropertyName string
	UnitLabel    string
	TenantID     uuid.UUID
	FullName     string
	Email        *string
	Phone        *string
}

func (r overdueRow) contact() Contact {
	return Contact{TenantID: r.TenantID, FullName: r.FullName, Email: r.Email, Phone: r.Phone}
}

type expiringRow struct {
	LeaseID      uuid.UUID
	EndDate      time.Time
	PropertyName string
	UnitLabel    string
	TenantID     uuid.UUID
	FullName     string
	Email        *string
	Phone        *string
}

func (r expiringRow) contact() Contact {
	return Contact{TenantID: r.TenantID, FullName: r.FullName, Email: r.Email, Phone: r.Phone}
}
