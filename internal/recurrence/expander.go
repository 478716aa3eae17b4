package recurrence

import (
	"context"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/metrics"
	"github.com/DevonCash/corvmc-backend/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Expander turns active recurring series into concrete reservation rows.
// Expansion is idempotent: dates that already have an instance are skipped,
// and the unique index on (series_id, instance_date) absorbs the race when
// two expansions run at once.
type Expander struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExpander constructs an Expander backed by GORM.
func NewExpander(db *gorm.DB) *Expander {
	return &Expander{db: db, now: time.Now}
}

// ExpandSeries generates the reservation instances a series is due, bounded
// by the earlier of the series end date and today plus the series'
// generate-ahead horizon. Both window ends are inclusive. A rule that yields
// no candidate dates in range is not an error.
func (e *Expander) ExpandSeries(ctx context.Context, series *models.RecurringSeries) ([]models.Reservation, error) {
	if series == nil || series.Status != models.SeriesStatusActive {
		return nil, nil
	}

	windowStart := dateOnly(series.StartDate)
	windowEnd := dateOnly(e.now()).AddDate(0, 0, series.MaxAdvanceDays)
	if series.EndDate != nil {
		if seriesEnd := dateOnly(*series.EndDate); seriesEnd.Before(windowEnd) {
			windowEnd = seriesEnd
		}
	}
	if windowEnd.Before(windowStart) {
		return nil, nil
	}

	rule, errParse := ParseRule(series.Rule, windowStart)
	if errParse != nil {
		return nil, errParse
	}
	startOffset, errStart := parseTimeOfDay(series.StartTime)
	if errStart != nil {
		return nil, errStart
	}
	endOffset, errEnd := parseTimeOfDay(series.EndTime)
	if errEnd != nil {
		return nil, errEnd
	}
	if endOffset <= startOffset {
		// Window crosses midnight.
		endOffset += 24 * time.Hour
	}

	existing, errExisting := e.existingDates(ctx, series.ID)
	if errExisting != nil {
		return nil, errExisting
	}

	var created []models.Reservation
	for _, candidate := range rule.Between(windowStart, windowEnd, true) {
		day := dateOnly(candidate)
		if _, ok := existing[day]; ok {
			continue
		}

		instanceDate := day
		seriesID := series.ID
		res := models.Reservation{
			SeriesID:      &seriesID,
			InstanceDate:  &instanceDate,
			UserID:        series.UserID,
			StartsAt:      day.Add(startOffset),
			EndsAt:        day.Add(endOffset),
			Status:        models.ReservationStatusPending,
			PaymentStatus: models.PaymentStatusUnpaid,
		}
		result := e.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "series_id"}, {Name: "instance_date"}},
				DoNothing: true,
			}).
			Create(&res)
		if result.Error != nil {
			return created, result.Error
		}
		if result.RowsAffected == 0 {
			// A concurrent expansion created this date first.
			continue
		}
		created = append(created, res)
	}

	if len(created) > 0 {
		metrics.InstancesGenerated.Add(float64(len(created)))
	}

	if series.EndDate != nil && dateOnly(e.now()).After(dateOnly(*series.EndDate)) {
		if errDone := e.db.WithContext(ctx).
			Model(&models.RecurringSeries{}).
			Where("id = ? AND status = ?", series.ID, models.SeriesStatusActive).
			Update("status", models.SeriesStatusCompleted).Error; errDone != nil {
			return created, errDone
		}
		series.Status = models.SeriesStatusCompleted
	}

	return created, nil
}

// ExpandAll runs ExpandSeries over every active series. Failures are logged
// per series and do not stop the sweep.
func (e *Expander) ExpandAll(ctx context.Context) (int, error) {
	var series []models.RecurringSeries
	if errFind := e.db.WithContext(ctx).
		Where("status = ?", models.SeriesStatusActive).
		Order("id ASC").
		Find(&series).Error; errFind != nil {
		return 0, errFind
	}

	total := 0
	for i := range series {
		created, errExpand := e.ExpandSeries(ctx, &series[i])
		if errExpand != nil {
			log.WithError(errExpand).WithField("series_id", series[i].ID).Warn("series expansion failed")
			continue
		}
		total += len(created)
	}
	return total, nil
}

// existingDates returns the instance dates already generated for a series.
func (e *Expander) existingDates(ctx context.Context, seriesID uint64) (map[time.Time]struct{}, error) {
	var rows []models.Reservation
	if errFind := e.db.WithContext(ctx).
		Select("instance_date").
		Where("series_id = ?", seriesID).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	out := make(map[time.Time]struct{}, len(rows))
	for _, row := range rows {
		if row.InstanceDate != nil {
			out[dateOnly(*row.InstanceDate)] = struct{}{}
		}
	}
	return out, nil
}
