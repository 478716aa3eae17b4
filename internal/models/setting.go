package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a key/value configuration entry in the database. Values are
// JSON so per-credit-type rules and scheduler knobs can change without a
// deploy.
type Setting struct {
	Key       string         `gorm:"type:varchar(255);primaryKey"`                      // Configuration key.
	Value     datatypes.JSON `gorm:"type:jsonb"`                                        // JSON-encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Setting) TableName() string {
	return "settings"
}
