package models

import "time"

// PromoCode grants credits when redeemed by a member.
type PromoCode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code        string `gorm:"type:varchar(64);not null;uniqueIndex"` // Redemption code, exact match.
	Description string `gorm:"type:text"`                             // Optional campaign note.

	CreditType string `gorm:"type:varchar(64);not null"` // Credit type granted on redemption.
	Amount     int64  `gorm:"not null"`                  // Blocks granted per redemption.

	MaxUses  int  `gorm:"not null;default:0"`    // Global redemption cap, 0 means unlimited.
	UseCount int  `gorm:"not null;default:0"`    // Redemptions so far.
	IsActive bool `gorm:"not null;default:true"` // Whether the code can be redeemed.

	ExpiresAt *time.Time // Expiration time, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (PromoCode) TableName() string {
	return "promo_codes"
}

// PromoRedemption records one member's redemption of one code. The unique
// index backs the one-redemption-per-member rule.
type PromoRedemption struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	PromoCodeID uint64 `gorm:"not null;uniqueIndex:uk_promo_user,priority:1"` // Redeemed code.
	UserID      uint64 `gorm:"not null;uniqueIndex:uk_promo_user,priority:2"` // Redeeming member.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Redemption timestamp.
}

// TableName overrides the default table name.
func (PromoRedemption) TableName() string {
	return "promo_redemptions"
}
