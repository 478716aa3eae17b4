package models

import "time"

// Credit transaction source tags recorded on every balance mutation.
const (
	// SourceMonthlyReset marks a non-rollover monthly allocation.
	SourceMonthlyReset = "monthly_reset"
	// SourceMonthlyAllocation marks a rollover monthly allocation.
	SourceMonthlyAllocation = "monthly_allocation"
	// SourcePromoCode marks a promo code redemption grant.
	SourcePromoCode = "promo_code"
	// SourceReservation marks a deduction paying for a reservation.
	SourceReservation = "reservation"
	// SourceEquipmentLoan marks a deduction paying for an equipment loan.
	SourceEquipmentLoan = "equipment_loan"
	// SourceManual marks a staff-entered adjustment.
	SourceManual = "manual"
)

// UserCredit is the denormalized balance for one (member, credit type) pair.
// Balances are stored in blocks, the smallest billable unit.
type UserCredit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID     uint64 `gorm:"not null;uniqueIndex:uk_user_credit_type,priority:1"`            // Owning member.
	CreditType string `gorm:"type:varchar(64);not null;uniqueIndex:uk_user_credit_type,priority:2"` // Credit type tag, e.g. free_hours.

	Balance    int64  `gorm:"not null;default:0"` // Current balance in blocks, never negative.
	MaxBalance *int64 // Rollover cap in blocks, if any.

	RolloverEnabled bool       `gorm:"not null;default:false"` // Carry unused balance into the next period.
	ExpiresAt       *time.Time // Balance reads as zero after this time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (UserCredit) TableName() string {
	return "user_credits"
}

// CreditTransaction is an immutable audit row appended on every balance
// mutation. Rows are never updated or deleted.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID     uint64 `gorm:"not null;index:idx_credit_tx_user_type,priority:1"`            // Owning member.
	CreditType string `gorm:"type:varchar(64);not null;index:idx_credit_tx_user_type,priority:2"` // Credit type tag.

	Amount       int64 `gorm:"not null"` // Signed mutation amount in blocks.
	BalanceAfter int64 `gorm:"not null"` // Balance snapshot after the mutation.

	Source      string  `gorm:"type:varchar(64);not null;index"` // Mutation source tag.
	SourceID    *string `gorm:"type:varchar(64)"`                // Identifier of the source entity, if any.
	Description string  `gorm:"type:text"`                       // Optional human-readable note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName overrides the default table name.
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
