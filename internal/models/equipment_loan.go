package models

import "time"

// EquipmentLoan tracks one checkout of one equipment item through its
// lifecycle. The state column holds a loans.State name. At most one loan per
// equipment item may be in a non-terminal state at any time; the checkout
// path enforces this under a row lock.
type EquipmentLoan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EquipmentID uint64 `gorm:"not null;index"` // Loaned item.
	BorrowerID  uint64 `gorm:"not null;index"` // Borrowing member.

	State string `gorm:"type:varchar(32);not null;index"` // Current lifecycle state.

	CheckedOutAt *time.Time // When the item left the building.
	DueAt        *time.Time `gorm:"index"` // Agreed return deadline.
	ReturnedAt   *time.Time // When the item came back.

	ConditionOut string `gorm:"type:varchar(32)"` // Condition grade at checkout.
	ConditionIn  string `gorm:"type:varchar(32)"` // Condition grade at return.
	DamageNotes  string `gorm:"type:text"`        // Damage description, if any.

	SecurityDeposit int64 `gorm:"not null;default:0"` // Deposit held, in cents.
	RentalFee       int64 `gorm:"not null;default:0"` // Rental fee, in cents.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (EquipmentLoan) TableName() string {
	return "equipment_loans"
}
