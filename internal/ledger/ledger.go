// Package ledger implements the credit ledger: an append-only transaction log
// plus a denormalized balance per (member, credit type). Every mutation runs
// inside one database transaction with the balance row locked, so a
// concurrent deduct and monthly allocation cannot interleave and lose an
// update.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/metrics"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger mutates and reads member credit balances.
type Ledger struct {
	db *gorm.DB
}

// New constructs a Ledger backed by GORM.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// SourceID formats an entity id for the credit_transactions source_id column.
func SourceID(id uint64) *string {
	s := strconv.FormatUint(id, 10)
	return &s
}

// GetBalance returns the member's effective balance for a credit type.
// A missing row and a time-expired row both read as zero.
func (l *Ledger) GetBalance(ctx context.Context, userID uint64, creditType string) (int64, error) {
	var uc models.UserCredit
	errFind := l.db.WithContext(ctx).
		Where("user_id = ? AND credit_type = ?", userID, creditType).
		First(&uc).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if errFind != nil {
		return 0, errFind
	}
	return effectiveBalance(&uc, time.Now()), nil
}

// Transactions returns the member's transaction log for a credit type,
// newest first.
func (l *Ledger) Transactions(ctx context.Context, userID uint64, creditType string, limit int) ([]models.CreditTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.CreditTransaction
	query := l.db.WithContext(ctx).Where("user_id = ?", userID)
	if creditType != "" {
		query = query.Where("credit_type = ?", creditType)
	}
	if errFind := query.Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// MonthlyUsage returns the blocks a member spent this calendar month for a
// credit type (the sum of deductions, as a positive number).
func (l *Ledger) MonthlyUsage(ctx context.Context, userID uint64, creditType string) (int64, error) {
	var total *int64
	errSum := l.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("SUM(amount)").
		Where("user_id = ? AND credit_type = ? AND amount < 0 AND created_at >= ?",
			userID, creditType, monthStart(time.Now())).
		Scan(&total).Error
	if errSum != nil {
		return 0, errSum
	}
	if total == nil {
		return 0, nil
	}
	return -*total, nil
}

// AddCredits adds amount blocks to the member's balance, creating the balance
// row if absent, and records a transaction. No cap applies here; caps are
// enforced only by the monthly allocation path.
func (l *Ledger) AddCredits(ctx context.Context, userID uint64, amount int64, creditType, source string, sourceID *string, description string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.CreditTransaction
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uc, errLock := lockOrCreateBalance(tx, userID, creditType)
		if errLock != nil {
			return errLock
		}
		var errAdd error
		entry, errAdd = applyDelta(tx, uc, amount, source, sourceID, description)
		return errAdd
	})
	if errTx != nil {
		return nil, errTx
	}

	metrics.CreditsGranted.WithLabelValues(source).Add(float64(amount))
	return entry, nil
}

// DeductCredits removes amount blocks from the member's balance and records a
// transaction. It fails with ErrInsufficientCredits when amount exceeds the
// effective balance; the balance is never clamped and no transaction is
// recorded on failure.
func (l *Ledger) DeductCredits(ctx context.Context, userID uint64, amount int64, creditType, source string, sourceID *string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.CreditTransaction
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var uc models.UserCredit
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND credit_type = ?", userID, creditType).
			First(&uc).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrInsufficientCredits
		}
		if errFind != nil {
			return errFind
		}
		if effectiveBalance(&uc, time.Now()) < amount {
			return ErrInsufficientCredits
		}

		var errDeduct error
		entry, errDeduct = applyDelta(tx, &uc, -amount, source, sourceID, "")
		return errDeduct
	})
	if errTx != nil {
		if errors.Is(errTx, ErrInsufficientCredits) {
			metrics.InsufficientCredits.Inc()
		}
		return nil, errTx
	}

	metrics.CreditsDeducted.WithLabelValues(source).Add(float64(amount))
	return entry, nil
}

// AllocateMonthlyCredits performs the monthly credit allocation for one
// member and credit type. It is idempotent per calendar month: when an
// allocation transaction already exists this month the call is a no-op and
// returns (nil, nil).
//
// Non-rollover types are reset to amount and the transaction amount equals
// the new balance. Rollover types are incremented by amount, truncated at the
// row's cap; the transaction amount reflects the truncated delta, which may
// be zero.
func (l *Ledger) AllocateMonthlyCredits(ctx context.Context, userID uint64, amount int64, creditType string) (*models.CreditTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var entry *models.CreditTransaction
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		uc, errLock := lockOrCreateBalance(tx, userID, creditType)
		if errLock != nil {
			return errLock
		}

		now := time.Now()
		var prior int64
		errCount := tx.Model(&models.CreditTransaction{}).
			Where("user_id = ? AND credit_type = ? AND source IN ? AND created_at >= ?",
				userID, creditType,
				[]string{models.SourceMonthlyReset, models.SourceMonthlyAllocation},
				monthStart(now)).
			Count(&prior).Error
		if errCount != nil {
			return errCount
		}
		if prior > 0 {
			return nil
		}

		if uc.RolloverEnabled {
			// An expired row carries no credit into the new month; zero it
			// before the cap math so stale balance does not eat headroom.
			if uc.ExpiresAt != nil && uc.ExpiresAt.Before(now) {
				uc.Balance = 0
				uc.ExpiresAt = nil
			}
			delta := amount
			if uc.MaxBalance != nil {
				if room := *uc.MaxBalance - uc.Balance; room < delta {
					delta = room
				}
				if delta < 0 {
					delta = 0
				}
			}
			var errApply error
			entry, errApply = applyDelta(tx, uc, delta, models.SourceMonthlyAllocation, nil, "monthly credit allocation")
			return errApply
		}

		// Reset semantics: prior balance is discarded and the transaction
		// amount records the new balance rather than a delta.
		uc.Balance = amount
		uc.ExpiresAt = nil
		if errSave := tx.Model(&models.UserCredit{}).
			Where("id = ?", uc.ID).
			Updates(map[string]any{"balance": uc.Balance, "expires_at": nil}).Error; errSave != nil {
			return errSave
		}
		entry = &models.CreditTransaction{
			UserID:       userID,
			CreditType:   creditType,
			Amount:       amount,
			BalanceAfter: uc.Balance,
			Source:       models.SourceMonthlyReset,
			Description:  "monthly credit reset",
		}
		return tx.Create(entry).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	if entry != nil {
		metrics.CreditsGranted.WithLabelValues(entry.Source).Add(float64(entry.Amount))
	}
	return entry, nil
}

// RedeemPromoCode redeems a code for the member and credits the configured
// amount. Unknown, inactive, and expired codes are all reported as
// ErrPromoCodeNotFound.
func (l *Ledger) RedeemPromoCode(ctx context.Context, userID uint64, code string) (*models.CreditTransaction, error) {
	var entry *models.CreditTransaction
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var promo models.PromoCode
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", code).
			First(&promo).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrPromoCodeNotFound
		}
		if errFind != nil {
			return errFind
		}
		now := time.Now()
		if !promo.IsActive || (promo.ExpiresAt != nil && promo.ExpiresAt.Before(now)) {
			return ErrPromoCodeNotFound
		}

		var redeemed int64
		if errCount := tx.Model(&models.PromoRedemption{}).
			Where("promo_code_id = ? AND user_id = ?", promo.ID, userID).
			Count(&redeemed).Error; errCount != nil {
			return errCount
		}
		if redeemed > 0 {
			return ErrPromoAlreadyRedeemed
		}
		if promo.MaxUses > 0 && promo.UseCount >= promo.MaxUses {
			return ErrPromoMaxUsesReached
		}

		if errUse := tx.Model(&models.PromoCode{}).
			Where("id = ?", promo.ID).
			Update("use_count", gorm.Expr("use_count + 1")).Error; errUse != nil {
			return errUse
		}
		redemption := models.PromoRedemption{PromoCodeID: promo.ID, UserID: userID}
		if errCreate := tx.Create(&redemption).Error; errCreate != nil {
			// The unique index catches a concurrent redemption by the same
			// member after our count check.
			return ErrPromoAlreadyRedeemed
		}

		uc, errLock := lockOrCreateBalance(tx, userID, promo.CreditType)
		if errLock != nil {
			return errLock
		}
		var errApply error
		entry, errApply = applyDelta(tx, uc, promo.Amount, models.SourcePromoCode, SourceID(promo.ID), promo.Description)
		return errApply
	})
	if errTx != nil {
		return nil, errTx
	}

	log.WithFields(log.Fields{"user_id": userID, "code": code}).Info("promo code redeemed")
	metrics.CreditsGranted.WithLabelValues(models.SourcePromoCode).Add(float64(entry.Amount))
	return entry, nil
}

// lockOrCreateBalance fetches the balance row under a row lock, creating it
// with per-type defaults when absent. A concurrent create losing the unique
// index race falls back to re-reading the winner's row.
func lockOrCreateBalance(tx *gorm.DB, userID uint64, creditType string) (*models.UserCredit, error) {
	var uc models.UserCredit
	errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND credit_type = ?", userID, creditType).
		First(&uc).Error
	if errFind == nil {
		return &uc, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	uc = models.UserCredit{UserID: userID, CreditType: creditType}
	if rule, ok := settings.CreditTypeRuleFor(creditType); ok {
		uc.RolloverEnabled = rule.Rollover
		uc.MaxBalance = rule.MaxBalance
	}
	if errCreate := tx.Create(&uc).Error; errCreate != nil {
		errRetry := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND credit_type = ?", userID, creditType).
			First(&uc).Error
		if errRetry != nil {
			return nil, fmt.Errorf("ledger: create balance row: %w", errCreate)
		}
	}
	return &uc, nil
}

// applyDelta mutates a locked balance row and appends the audit transaction.
// An expired balance is zeroed before a positive delta is applied so stale
// credit does not revive.
func applyDelta(tx *gorm.DB, uc *models.UserCredit, delta int64, source string, sourceID *string, description string) (*models.CreditTransaction, error) {
	if delta > 0 && uc.ExpiresAt != nil && uc.ExpiresAt.Before(time.Now()) {
		uc.Balance = 0
		uc.ExpiresAt = nil
	}
	uc.Balance += delta
	if uc.Balance < 0 {
		return nil, ErrInsufficientCredits
	}
	if errSave := tx.Model(&models.UserCredit{}).
		Where("id = ?", uc.ID).
		Updates(map[string]any{"balance": uc.Balance, "expires_at": uc.ExpiresAt}).Error; errSave != nil {
		return nil, errSave
	}

	entry := models.CreditTransaction{
		UserID:       uc.UserID,
		CreditType:   uc.CreditType,
		Amount:       delta,
		BalanceAfter: uc.Balance,
		Source:       source,
		SourceID:     sourceID,
		Description:  description,
	}
	if errCreate := tx.Create(&entry).Error; errCreate != nil {
		return nil, errCreate
	}
	return &entry, nil
}

// effectiveBalance returns the balance a reader should see: zero once the
// row's expiry has passed.
func effectiveBalance(uc *models.UserCredit, now time.Time) int64 {
	if uc.ExpiresAt != nil && uc.ExpiresAt.Before(now) {
		return 0
	}
	return uc.Balance
}

// monthStart returns midnight UTC on the first of now's month.
func monthStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
