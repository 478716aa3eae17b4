package db

import (
	"fmt"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every persisted model.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Member{},
		&models.UserCredit{},
		&models.CreditTransaction{},
		&models.PromoCode{},
		&models.PromoRedemption{},
		&models.RecurringSeries{},
		&models.Reservation{},
		&models.Equipment{},
		&models.EquipmentLoan{},
		&models.Setting{},
	)
}
