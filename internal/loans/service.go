package loans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/metrics"
	"github.com/DevonCash/corvmc-backend/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sentinel errors surfaced to callers.
var (
	// ErrEquipmentUnavailable means checkout hit an item that is not
	// available, not loanable, or already on an active loan.
	ErrEquipmentUnavailable = errors.New("loans: equipment unavailable")
	// ErrInvalidTransition means a move outside the transition graph was
	// attempted. This is a programming or authorization fault, not a
	// recoverable user error.
	ErrInvalidTransition = errors.New("loans: invalid state transition")
	// ErrLoanNotFound means the loan id does not exist.
	ErrLoanNotFound = errors.New("loans: loan not found")
	// ErrEquipmentNotFound means the equipment id does not exist.
	ErrEquipmentNotFound = errors.New("loans: equipment not found")
	// ErrNotCancellable means the member may not cancel in the current state.
	ErrNotCancellable = errors.New("loans: loan can no longer be cancelled by the member")
)

// Service runs loan lifecycle operations against the database.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service backed by GORM.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RequestParams are the inputs for a new loan request.
type RequestParams struct {
	EquipmentID     uint64
	BorrowerID      uint64
	DueAt           *time.Time
	SecurityDeposit int64
	RentalFee       int64
}

// Request opens a loan in the requested state. Availability is only
// pre-checked here; the decisive check happens at checkout, under a lock.
func (s *Service) Request(ctx context.Context, params RequestParams) (*models.EquipmentLoan, error) {
	var equipment models.Equipment
	errFind := s.db.WithContext(ctx).First(&equipment, params.EquipmentID).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrEquipmentNotFound
	}
	if errFind != nil {
		return nil, errFind
	}
	if !equipment.IsLoanable || equipment.Status != models.EquipmentStatusAvailable {
		return nil, ErrEquipmentUnavailable
	}

	loan := models.EquipmentLoan{
		EquipmentID:     params.EquipmentID,
		BorrowerID:      params.BorrowerID,
		State:           string(StateRequested),
		DueAt:           params.DueAt,
		SecurityDeposit: params.SecurityDeposit,
		RentalFee:       params.RentalFee,
	}
	if errCreate := s.db.WithContext(ctx).Create(&loan).Error; errCreate != nil {
		return nil, errCreate
	}
	return &loan, nil
}

// Get returns one loan by id.
func (s *Service) Get(ctx context.Context, loanID uint64) (*models.EquipmentLoan, error) {
	var loan models.EquipmentLoan
	errFind := s.db.WithContext(ctx).First(&loan, loanID).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, ErrLoanNotFound
	}
	if errFind != nil {
		return nil, errFind
	}
	return &loan, nil
}

// Transition moves a loan to a simple next state with no side effects
// (staff preparation, pickup-ready, dropoff scheduling, return inspection,
// damage reporting). Checkout, Return, and CancelByMember have their own
// entry points because they carry metadata or cross-entity effects.
func (s *Service) Transition(ctx context.Context, loanID uint64, to State) (*models.EquipmentLoan, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, to)
	}

	var loan models.EquipmentLoan
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockLoan(tx, loanID, &loan); errLock != nil {
			return errLock
		}
		from := State(loan.State)
		if !CanTransition(from, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
		}
		loan.State = string(to)
		return tx.Model(&models.EquipmentLoan{}).
			Where("id = ?", loan.ID).
			Update("state", loan.State).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &loan, nil
}

// CancelByMember cancels a loan on the member's behalf. Only states whose
// capability flags permit member cancellation qualify.
func (s *Service) CancelByMember(ctx context.Context, loanID, memberID uint64) (*models.EquipmentLoan, error) {
	var loan models.EquipmentLoan
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockLoan(tx, loanID, &loan); errLock != nil {
			return errLock
		}
		if loan.BorrowerID != memberID {
			return ErrLoanNotFound
		}
		from := State(loan.State)
		caps, _ := CapabilitiesFor(from)
		if !caps.CanBeCancelledByMember {
			return ErrNotCancellable
		}
		if !CanTransition(from, StateCancelled) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StateCancelled)
		}
		loan.State = string(StateCancelled)
		return tx.Model(&models.EquipmentLoan{}).
			Where("id = ?", loan.ID).
			Update("state", loan.State).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &loan, nil
}

// Checkout hands the equipment to the borrower. The availability check and
// the state writes run in one transaction with the equipment row locked, so
// two concurrent checkouts of the same item cannot both succeed: the loser
// observes the updated equipment status and fails with
// ErrEquipmentUnavailable.
func (s *Service) Checkout(ctx context.Context, loanID uint64, conditionOut string) (*models.EquipmentLoan, error) {
	var loan models.EquipmentLoan
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockLoan(tx, loanID, &loan); errLock != nil {
			return errLock
		}
		from := State(loan.State)
		if !CanTransition(from, StateCheckedOut) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StateCheckedOut)
		}

		var equipment models.Equipment
		errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&equipment, loan.EquipmentID).Error
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return ErrEquipmentNotFound
		}
		if errFind != nil {
			return errFind
		}
		if !equipment.IsLoanable || equipment.Status != models.EquipmentStatusAvailable {
			return ErrEquipmentUnavailable
		}

		var active int64
		if errCount := tx.Model(&models.EquipmentLoan{}).
			Where("equipment_id = ? AND id <> ? AND state IN ?",
				equipment.ID, loan.ID, activeStateStrings()).
			Count(&active).Error; errCount != nil {
			return errCount
		}
		if active > 0 {
			return ErrEquipmentUnavailable
		}

		now := time.Now().UTC()
		loan.State = string(StateCheckedOut)
		loan.CheckedOutAt = &now
		loan.ConditionOut = conditionOut
		if errSave := tx.Model(&models.EquipmentLoan{}).
			Where("id = ?", loan.ID).
			Updates(map[string]any{
				"state":          loan.State,
				"checked_out_at": loan.CheckedOutAt,
				"condition_out":  loan.ConditionOut,
			}).Error; errSave != nil {
			return errSave
		}

		return tx.Model(&models.Equipment{}).
			Where("id = ?", equipment.ID).
			Update("status", models.EquipmentStatusCheckedOut).Error
	})
	if errTx != nil {
		if errors.Is(errTx, ErrEquipmentUnavailable) {
			metrics.CheckoutConflicts.Inc()
		}
		return nil, errTx
	}

	metrics.Checkouts.Inc()
	return &loan, nil
}

// Return closes the loan, records the inspected condition and any damage
// notes, and flips the equipment back to available. The loan transition and
// the equipment update commit together or not at all; a loan marked returned
// with the equipment stuck at checked out would be a correctness bug.
func (s *Service) Return(ctx context.Context, loanID uint64, conditionIn, damageNotes string) (*models.EquipmentLoan, error) {
	var loan models.EquipmentLoan
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errLock := lockLoan(tx, loanID, &loan); errLock != nil {
			return errLock
		}
		from := State(loan.State)
		if !CanTransition(from, StateReturned) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, StateReturned)
		}

		now := time.Now().UTC()
		loan.State = string(StateReturned)
		loan.ReturnedAt = &now
		loan.ConditionIn = conditionIn
		loan.DamageNotes = damageNotes
		if errSave := tx.Model(&models.EquipmentLoan{}).
			Where("id = ?", loan.ID).
			Updates(map[string]any{
				"state":        loan.State,
				"returned_at":  loan.ReturnedAt,
				"condition_in": loan.ConditionIn,
				"damage_notes": loan.DamageNotes,
			}).Error; errSave != nil {
			return errSave
		}

		updates := map[string]any{"status": models.EquipmentStatusAvailable}
		if conditionIn != "" {
			updates["condition"] = conditionIn
		}
		return tx.Model(&models.Equipment{}).
			Where("id = ?", loan.EquipmentID).
			Updates(updates).Error
	})
	if errTx != nil {
		return nil, errTx
	}

	// Notification dispatch is an after-commit side effect, kept out of the
	// transaction on purpose. Delivery itself is an external collaborator.
	log.WithFields(log.Fields{
		"loan_id":      loan.ID,
		"equipment_id": loan.EquipmentID,
		"borrower_id":  loan.BorrowerID,
		"condition_in": conditionIn,
	}).Info("equipment returned")
	return &loan, nil
}

// MarkOverdue flags every checked-out loan past its due date. Used by the
// scheduler sweep; safe to re-run.
func (s *Service) MarkOverdue(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.EquipmentLoan{}).
		Where("state = ? AND due_at IS NOT NULL AND due_at < ?",
			string(StateCheckedOut), time.Now().UTC()).
		Update("state", string(StateOverdue))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ActiveLoanForEquipment returns the current non-terminal loan on an item,
// or nil when the item is free.
func (s *Service) ActiveLoanForEquipment(ctx context.Context, equipmentID uint64) (*models.EquipmentLoan, error) {
	var loan models.EquipmentLoan
	errFind := s.db.WithContext(ctx).
		Where("equipment_id = ? AND state IN ?", equipmentID, activeStateStrings()).
		Order("id DESC").
		First(&loan).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if errFind != nil {
		return nil, errFind
	}
	return &loan, nil
}

// lockLoan reads a loan under a row lock.
func lockLoan(tx *gorm.DB, loanID uint64, out *models.EquipmentLoan) error {
	errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(out, loanID).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		return ErrLoanNotFound
	}
	return errFind
}

func activeStateStrings() []string {
	states := ActiveStates()
	out := make([]string, len(states))
	for i, state := range states {
		out[i] = string(state)
	}
	return out
}
