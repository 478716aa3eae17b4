package models

import "time"

// Equipment statuses.
const (
	// EquipmentStatusAvailable means the item can be loaned.
	EquipmentStatusAvailable = "available"
	// EquipmentStatusCheckedOut means the item is out on an active loan.
	EquipmentStatusCheckedOut = "checked_out"
	// EquipmentStatusMaintenance means the item is being serviced.
	EquipmentStatusMaintenance = "maintenance"
	// EquipmentStatusRetired means the item left the inventory.
	EquipmentStatusRetired = "retired"
)

// Equipment condition grades, best to worst.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
	ConditionBroken    = "broken"
)

// Equipment is a physical inventory item owned by the collective.
type Equipment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name   string `gorm:"type:text;not null"`                    // Display name.
	Serial string `gorm:"type:varchar(120);not null;uniqueIndex"` // Unique inventory serial.

	Status    string `gorm:"type:varchar(32);not null;default:'available';index"` // Availability status.
	Condition string `gorm:"type:varchar(32);not null;default:'good'"`            // Last recorded condition grade.

	IsLoanable bool `gorm:"not null;default:true"` // Whether members may borrow the item.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Equipment) TableName() string {
	return "equipment"
}
