package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Refresh reloads all settings from the database and updates the in-memory
// snapshot.
//
// This is required at process startup; otherwise Value() returns nothing
// until an admin updates settings via the API (which triggers refresh).
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	maxUpdatedAt := time.Time{}
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = json.RawMessage(row.Value)
		rowUpdatedAt := row.UpdatedAt.UTC()
		if rowUpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = rowUpdatedAt
		}
	}

	Store(maxUpdatedAt, values)
	return nil
}

// Seed writes the shipped defaults for any setting key that does not exist
// yet, then refreshes the snapshot.
func Seed(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}

	defaults := map[string]any{
		CreditTypesKey:            DefaultCreditTypeRules(),
		ExpandIntervalSecondsKey:  DefaultExpandIntervalSeconds,
		OverdueIntervalSecondsKey: DefaultOverdueIntervalSeconds,
	}
	for key, value := range defaults {
		encoded, errEncode := json.Marshal(value)
		if errEncode != nil {
			return errEncode
		}
		row := models.Setting{Key: key, Value: encoded}
		if errCreate := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error; errCreate != nil {
			return errCreate
		}
	}

	return Refresh(ctx, db)
}

// Update writes one setting and refreshes the snapshot.
func Update(ctx context.Context, db *gorm.DB, key string, value json.RawMessage) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("settings: empty key")
	}
	if !json.Valid(value) {
		return errors.New("settings: value is not valid json")
	}

	row := models.Setting{Key: key, Value: []byte(value)}
	if errSave := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error; errSave != nil {
		return errSave
	}

	return Refresh(ctx, db)
}
