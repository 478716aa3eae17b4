package recurrence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupExpanderDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:expander_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.RecurringSeries{}, &models.Reservation{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func fixedExpander(db *gorm.DB, now time.Time) *Expander {
	e := NewExpander(db)
	e.now = func() time.Time { return now }
	return e
}

func weeklySeries(endDate *time.Time) models.RecurringSeries {
	return models.RecurringSeries{
		UserID:         1,
		TargetType:     "rehearsal",
		Rule:           "FREQ=WEEKLY;BYDAY=MO",
		StartTime:      "19:00",
		EndTime:        "21:00",
		StartDate:      time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		EndDate:        endDate,
		MaxAdvanceDays: 90,
		Status:         models.SeriesStatusActive,
	}
}

func TestExpandSeriesGeneratesWeeklyInstances(t *testing.T) {
	db := setupExpanderDB(t)
	endDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(&endDate)
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	created, errExpand := expander.ExpandSeries(context.Background(), &series)
	if errExpand != nil {
		t.Fatalf("expand: %v", errExpand)
	}
	if len(created) != 4 {
		t.Fatalf("expected 4 instances for the Mondays of January, got %d", len(created))
	}

	first := created[0]
	wantStart := time.Date(2025, 1, 6, 19, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 1, 6, 21, 0, 0, 0, time.UTC)
	if !first.StartsAt.Equal(wantStart) || !first.EndsAt.Equal(wantEnd) {
		t.Fatalf("expected first instance %s..%s, got %s..%s",
			wantStart, wantEnd, first.StartsAt, first.EndsAt)
	}
	if first.Status != models.ReservationStatusPending || first.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("expected pending/unpaid instance, got %s/%s", first.Status, first.PaymentStatus)
	}
	if first.SeriesID == nil || *first.SeriesID != series.ID {
		t.Fatal("expected instance to reference its series")
	}
}

func TestExpandSeriesIsIdempotent(t *testing.T) {
	db := setupExpanderDB(t)
	endDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(&endDate)
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	if _, errFirst := expander.ExpandSeries(context.Background(), &series); errFirst != nil {
		t.Fatalf("first expand: %v", errFirst)
	}
	again, errSecond := expander.ExpandSeries(context.Background(), &series)
	if errSecond != nil {
		t.Fatalf("second expand: %v", errSecond)
	}
	if len(again) != 0 {
		t.Fatalf("expected second expansion to create nothing, got %d", len(again))
	}

	var count int64
	if errCount := db.Model(&models.Reservation{}).
		Where("series_id = ?", series.ID).
		Count(&count).Error; errCount != nil {
		t.Fatalf("count instances: %v", errCount)
	}
	if count != 4 {
		t.Fatalf("expected 4 instances total, got %d", count)
	}
}

func TestExpandSeriesHonorsAdvanceHorizon(t *testing.T) {
	db := setupExpanderDB(t)
	series := weeklySeries(nil)
	series.MaxAdvanceDays = 14
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	// Horizon is today+14d = Jan 20, so Jan 27 stays ungenerated.
	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	created, errExpand := expander.ExpandSeries(context.Background(), &series)
	if errExpand != nil {
		t.Fatalf("expand: %v", errExpand)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 instances inside the horizon, got %d", len(created))
	}
	last := created[len(created)-1]
	if last.InstanceDate == nil || !last.InstanceDate.Equal(time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected last instance on Jan 20, got %v", last.InstanceDate)
	}
}

func TestExpandSeriesMidnightCrossingWindow(t *testing.T) {
	db := setupExpanderDB(t)
	endDate := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(&endDate)
	series.StartTime = "22:00"
	series.EndTime = "01:00"
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	created, errExpand := expander.ExpandSeries(context.Background(), &series)
	if errExpand != nil {
		t.Fatalf("expand: %v", errExpand)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(created))
	}
	wantEnd := time.Date(2025, 1, 7, 1, 0, 0, 0, time.UTC)
	if !created[0].EndsAt.Equal(wantEnd) {
		t.Fatalf("expected end on the next day at %s, got %s", wantEnd, created[0].EndsAt)
	}
}

func TestExpandSeriesMarksCompletedAfterEndDate(t *testing.T) {
	db := setupExpanderDB(t)
	endDate := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	series := weeklySeries(&endDate)
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	expander := fixedExpander(db, time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC))
	if _, errExpand := expander.ExpandSeries(context.Background(), &series); errExpand != nil {
		t.Fatalf("expand: %v", errExpand)
	}
	if series.Status != models.SeriesStatusCompleted {
		t.Fatalf("expected series marked completed, got %s", series.Status)
	}

	var reloaded models.RecurringSeries
	if errFind := db.First(&reloaded, series.ID).Error; errFind != nil {
		t.Fatalf("reload series: %v", errFind)
	}
	if reloaded.Status != models.SeriesStatusCompleted {
		t.Fatalf("expected persisted status completed, got %s", reloaded.Status)
	}
}

func TestExpandSeriesSkipsInactive(t *testing.T) {
	db := setupExpanderDB(t)
	series := weeklySeries(nil)
	series.Status = models.SeriesStatusCancelled
	if errCreate := db.Create(&series).Error; errCreate != nil {
		t.Fatalf("create series: %v", errCreate)
	}

	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	created, errExpand := expander.ExpandSeries(context.Background(), &series)
	if errExpand != nil {
		t.Fatalf("expand: %v", errExpand)
	}
	if created != nil {
		t.Fatalf("expected cancelled series to generate nothing, got %d", len(created))
	}
}

func TestExpandAllContinuesPastBadSeries(t *testing.T) {
	db := setupExpanderDB(t)
	endDate := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	broken := weeklySeries(&endDate)
	broken.Rule = "FREQ=YEARLY"
	good := weeklySeries(&endDate)
	for _, series := range []*models.RecurringSeries{&broken, &good} {
		if errCreate := db.Create(series).Error; errCreate != nil {
			t.Fatalf("create series: %v", errCreate)
		}
	}

	expander := fixedExpander(db, time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC))
	total, errExpand := expander.ExpandAll(context.Background())
	if errExpand != nil {
		t.Fatalf("expand all: %v", errExpand)
	}
	if total != 4 {
		t.Fatalf("expected the valid series to produce 4 instances, got %d", total)
	}
}
