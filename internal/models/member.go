package models

import "time"

// Member represents a collective member account.
type Member struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name  string `gorm:"type:text;not null"`             // Display name.
	Email string `gorm:"type:text;not null;uniqueIndex"` // Unique contact email.

	IsStaff  bool `gorm:"not null;default:false"` // Whether the member has staff duties.
	IsActive bool `gorm:"not null;default:true"`  // Whether the membership is current.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Member) TableName() string {
	return "members"
}
