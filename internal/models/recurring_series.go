package models

import "time"

// Recurring series lifecycle statuses.
const (
	// SeriesStatusActive means the series still generates instances.
	SeriesStatusActive = "active"
	// SeriesStatusCancelled means the series was cancelled by its owner.
	SeriesStatusCancelled = "cancelled"
	// SeriesStatusCompleted means the series end date has passed.
	SeriesStatusCompleted = "completed"
)

// RecurringSeries describes a repeating reservation and owns the instances
// it generates. Generated instances reference the series by id but survive
// series deletion.
type RecurringSeries struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID     uint64 `gorm:"not null;index"`                 // Owning member.
	TargetType string `gorm:"type:varchar(64);not null"`      // Kind of instance to generate, e.g. rehearsal.
	Rule       string `gorm:"type:varchar(255);not null"`     // Recurrence rule, RRULE subset.

	StartTime string `gorm:"type:varchar(5);not null"` // Daily window start, HH:MM.
	EndTime   string `gorm:"type:varchar(5);not null"` // Daily window end, HH:MM.

	StartDate time.Time  `gorm:"not null"` // First date the rule applies to.
	EndDate   *time.Time // Hard series end date, if any.

	MaxAdvanceDays int `gorm:"not null;default:90"` // Sliding generate-ahead horizon in days.

	Status string `gorm:"type:varchar(32);not null;default:'active';index"` // Lifecycle status.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (RecurringSeries) TableName() string {
	return "recurring_series"
}
