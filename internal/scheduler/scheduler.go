// Package scheduler runs the periodic background sweeps: recurring series
// expansion, overdue loan flagging, and the monthly credit allocation.
package scheduler

import (
	"context"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/DevonCash/corvmc-backend/internal/loans"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/recurrence"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const allocationBatchSize = 200

// Scheduler owns the background sweep loops.
type Scheduler struct {
	db       *gorm.DB
	expander *recurrence.Expander
	loans    *loans.Service
	ledger   *ledger.Ledger
}

// New constructs a Scheduler.
func New(db *gorm.DB) *Scheduler {
	if db == nil {
		return nil
	}
	return &Scheduler{
		db:       db,
		expander: recurrence.NewExpander(db),
		loans:    loans.NewService(db),
		ledger:   ledger.New(db),
	}
}

// Start launches the sweep loops in background goroutines. They stop when
// ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx, s.expandInterval, s.expandSweep)
	go s.run(ctx, s.overdueInterval, s.overdueSweep)
	log.Info("scheduler started")
}

func (s *Scheduler) run(ctx context.Context, interval func() time.Duration, sweep func(context.Context)) {
	for {
		if ctx.Err() != nil {
			return
		}
		sweep(ctx)
		if ctx.Err() != nil {
			return
		}
		timer := time.NewTimer(interval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) expandInterval() time.Duration {
	seconds := settings.IntValue(settings.ExpandIntervalSecondsKey, settings.DefaultExpandIntervalSeconds)
	if seconds <= 0 {
		seconds = settings.DefaultExpandIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

func (s *Scheduler) overdueInterval() time.Duration {
	seconds := settings.IntValue(settings.OverdueIntervalSecondsKey, settings.DefaultOverdueIntervalSeconds)
	if seconds <= 0 {
		seconds = settings.DefaultOverdueIntervalSeconds
	}
	return time.Duration(seconds) * time.Second
}

// expandSweep generates upcoming instances for every active series and, on
// the first pass of each calendar month, runs the credit allocation.
func (s *Scheduler) expandSweep(ctx context.Context) {
	created, errExpand := s.expander.ExpandAll(ctx)
	if errExpand != nil {
		log.WithError(errExpand).Warn("scheduler: expansion sweep failed")
	} else if created > 0 {
		log.Infof("scheduler: expansion sweep created %d instances", created)
	}

	// AllocateMonthlyCredits is idempotent per member and month, so running
	// it on every sweep only does work once per month.
	if errAllocate := s.allocateSweep(ctx); errAllocate != nil {
		log.WithError(errAllocate).Warn("scheduler: allocation sweep failed")
	}
}

func (s *Scheduler) overdueSweep(ctx context.Context) {
	marked, errMark := s.loans.MarkOverdue(ctx)
	if errMark != nil {
		log.WithError(errMark).Warn("scheduler: overdue sweep failed")
		return
	}
	if marked > 0 {
		log.Infof("scheduler: marked %d loans overdue", marked)
	}
}

// allocateSweep walks active members in id batches and applies the monthly
// allocation for every configured credit type.
func (s *Scheduler) allocateSweep(ctx context.Context) error {
	rules := settings.CreditTypeRules()
	if len(rules) == 0 {
		return nil
	}

	var lastID uint64
	for {
		var members []models.Member
		if errFind := s.db.WithContext(ctx).
			Select("id").
			Where("is_active = ? AND id > ?", true, lastID).
			Order("id ASC").
			Limit(allocationBatchSize).
			Find(&members).Error; errFind != nil {
			return errFind
		}
		if len(members) == 0 {
			return nil
		}

		for _, member := range members {
			lastID = member.ID
			for creditType, rule := range rules {
				if rule.MonthlyAmount <= 0 {
					continue
				}
				if _, errAllocate := s.ledger.AllocateMonthlyCredits(ctx, member.ID, rule.MonthlyAmount, creditType); errAllocate != nil {
					log.WithError(errAllocate).Warnf("scheduler: allocation failed (member=%d type=%s)",
						member.ID, creditType)
				}
			}
		}
	}
}
