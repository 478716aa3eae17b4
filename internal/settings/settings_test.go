package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSettingsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func TestSnapshotStoreAndValue(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		"FOO": json.RawMessage(`42`),
		"   ": json.RawMessage(`"ignored"`),
	})

	raw, ok := Value("FOO")
	if !ok || string(raw) != "42" {
		t.Fatalf("expected FOO=42, got %q/%v", raw, ok)
	}
	if _, ok := Value("MISSING"); ok {
		t.Fatal("expected MISSING to be absent")
	}
	if got := IntValue("FOO", 7); got != 42 {
		t.Fatalf("expected IntValue 42, got %d", got)
	}
	if got := IntValue("MISSING", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}

func TestIntValueMalformedFallsBack(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		"BAD": json.RawMessage(`"not a number"`),
	})
	if got := IntValue("BAD", 11); got != 11 {
		t.Fatalf("expected fallback 11, got %d", got)
	}
}

func TestCreditTypeRulesFallsBackToDefaults(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{})

	rules := CreditTypeRules()
	freeHours, ok := rules[CreditTypeFreeHours]
	if !ok || freeHours.MonthlyAmount != 32 || freeHours.Rollover {
		t.Fatalf("expected default free_hours rule, got %+v", freeHours)
	}
	equipment, ok := rules[CreditTypeEquipmentCredits]
	if !ok || !equipment.Rollover || equipment.MaxBalance == nil || *equipment.MaxBalance != 250 {
		t.Fatalf("expected default equipment_credits rule, got %+v", equipment)
	}
}

func TestCreditTypeRulesFromSnapshot(t *testing.T) {
	Store(time.Now(), map[string]json.RawMessage{
		CreditTypesKey: json.RawMessage(`{"free_hours":{"monthly_amount":16,"rollover":true}}`),
	})

	rule, ok := CreditTypeRuleFor(CreditTypeFreeHours)
	if !ok {
		t.Fatal("expected free_hours rule")
	}
	if rule.MonthlyAmount != 16 || !rule.Rollover {
		t.Fatalf("expected configured rule, got %+v", rule)
	}
}

func TestSeedAndRefresh(t *testing.T) {
	db := setupSettingsDB(t)
	ctx := context.Background()

	if errSeed := Seed(ctx, db); errSeed != nil {
		t.Fatalf("seed: %v", errSeed)
	}
	if got := IntValue(ExpandIntervalSecondsKey, 0); got != DefaultExpandIntervalSeconds {
		t.Fatalf("expected seeded expand interval %d, got %d", DefaultExpandIntervalSeconds, got)
	}

	// Seeding again must not clobber an admin edit.
	if errUpdate := Update(ctx, db, ExpandIntervalSecondsKey, json.RawMessage(`120`)); errUpdate != nil {
		t.Fatalf("update: %v", errUpdate)
	}
	if errSeed := Seed(ctx, db); errSeed != nil {
		t.Fatalf("second seed: %v", errSeed)
	}
	if got := IntValue(ExpandIntervalSecondsKey, 0); got != 120 {
		t.Fatalf("expected edit to survive re-seed, got %d", got)
	}
}

func TestUpdateRejectsInvalidJSON(t *testing.T) {
	db := setupSettingsDB(t)
	if errUpdate := Update(context.Background(), db, "KEY", json.RawMessage(`{broken`)); errUpdate == nil {
		t.Fatal("expected invalid json to be rejected")
	}
}
