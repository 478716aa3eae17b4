package models

import "time"

// Reservation statuses.
const (
	// ReservationStatusPending means the booking awaits confirmation.
	ReservationStatusPending = "pending"
	// ReservationStatusConfirmed means the booking is confirmed.
	ReservationStatusConfirmed = "confirmed"
	// ReservationStatusCancelled means the booking was cancelled; the row
	// persists for audit.
	ReservationStatusCancelled = "cancelled"
)

// Payment statuses tracked on billable reservations.
const (
	// PaymentStatusUnpaid means payment is still owed.
	PaymentStatusUnpaid = "unpaid"
	// PaymentStatusPaid means payment settled.
	PaymentStatusPaid = "paid"
	// PaymentStatusComped means payment was waived.
	PaymentStatusComped = "comped"
)

// Reservation is a concrete rehearsal-space booking, created either by the
// series expander or directly by a member. The unique index on
// (series_id, instance_date) makes concurrent expansion runs collide cleanly
// instead of double-generating a date; manual reservations carry a nil series
// and are exempt.
type Reservation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	SeriesID     *uint64    `gorm:"uniqueIndex:uk_series_instance,priority:1"`          // Owning series, nil for manual bookings.
	InstanceDate *time.Time `gorm:"uniqueIndex:uk_series_instance,priority:2;type:date"` // Generated instance date.

	UserID uint64 `gorm:"not null;index"` // Booking member.

	StartsAt time.Time `gorm:"not null;index"` // Booking start.
	EndsAt   time.Time `gorm:"not null"`       // Booking end.

	Status             string `gorm:"type:varchar(32);not null;default:'pending';index"` // Lifecycle status.
	CancellationReason string `gorm:"type:text"`                                         // Reason recorded on cancellation.

	Cost          int64  `gorm:"not null;default:0"`                                // Cost in cents.
	PaymentStatus string `gorm:"type:varchar(32);not null;default:'unpaid'"`        // Payment state.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Reservation) TableName() string {
	return "reservations"
}
