package loans

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupLoansDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:loans_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Equipment{}, &models.EquipmentLoan{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func createEquipment(t *testing.T, db *gorm.DB) *models.Equipment {
	t.Helper()
	item := models.Equipment{
		Name:       "Fender Twin Reverb",
		Serial:     fmt.Sprintf("AMP-%d", time.Now().UnixNano()),
		Status:     models.EquipmentStatusAvailable,
		Condition:  models.ConditionGood,
		IsLoanable: true,
	}
	if errCreate := db.Create(&item).Error; errCreate != nil {
		t.Fatalf("create equipment: %v", errCreate)
	}
	return &item
}

// advanceToReady walks a fresh request up to ready_for_pickup.
func advanceToReady(t *testing.T, service *Service, loanID uint64) {
	t.Helper()
	ctx := context.Background()
	if _, errMove := service.Transition(ctx, loanID, StateStaffPreparing); errMove != nil {
		t.Fatalf("to staff_preparing: %v", errMove)
	}
	if _, errMove := service.Transition(ctx, loanID, StateReadyForPickup); errMove != nil {
		t.Fatalf("to ready_for_pickup: %v", errMove)
	}
}

func TestRequestAndCheckout(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	due := time.Now().Add(7 * 24 * time.Hour)
	loan, errRequest := service.Request(ctx, RequestParams{
		EquipmentID: item.ID,
		BorrowerID:  1,
		DueAt:       &due,
	})
	if errRequest != nil {
		t.Fatalf("request: %v", errRequest)
	}
	if loan.State != string(StateRequested) {
		t.Fatalf("expected requested state, got %s", loan.State)
	}

	advanceToReady(t, service, loan.ID)

	checked, errCheckout := service.Checkout(ctx, loan.ID, models.ConditionExcellent)
	if errCheckout != nil {
		t.Fatalf("checkout: %v", errCheckout)
	}
	if checked.State != string(StateCheckedOut) || checked.CheckedOutAt == nil {
		t.Fatalf("expected checked_out with timestamp, got %s/%v", checked.State, checked.CheckedOutAt)
	}
	if checked.ConditionOut != models.ConditionExcellent {
		t.Fatalf("expected condition_out recorded, got %q", checked.ConditionOut)
	}

	var reloaded models.Equipment
	if errFind := db.First(&reloaded, item.ID).Error; errFind != nil {
		t.Fatalf("reload equipment: %v", errFind)
	}
	if reloaded.Status != models.EquipmentStatusCheckedOut {
		t.Fatalf("expected equipment checked_out, got %s", reloaded.Status)
	}
}

func TestCheckoutRejectsSecondActiveLoan(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	first, errFirst := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})
	if errFirst != nil {
		t.Fatalf("first request: %v", errFirst)
	}
	advanceToReady(t, service, first.ID)
	if _, errCheckout := service.Checkout(ctx, first.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("first checkout: %v", errCheckout)
	}

	// A second request for the same item now fails the pre-check.
	_, errSecond := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 2})
	if !errors.Is(errSecond, ErrEquipmentUnavailable) {
		t.Fatalf("expected ErrEquipmentUnavailable on request, got %v", errSecond)
	}

	// After the first loan closes the item can be borrowed again.
	if _, errReturn := service.Return(ctx, first.ID, models.ConditionGood, ""); errReturn != nil {
		t.Fatalf("return: %v", errReturn)
	}
	third, errThird := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 2})
	if errThird != nil {
		t.Fatalf("request after return: %v", errThird)
	}
	advanceToReady(t, service, third.ID)
	if _, errCheckout := service.Checkout(ctx, third.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("checkout after return: %v", errCheckout)
	}
}

func TestCheckoutLosesRaceToExistingActiveLoan(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	// Two loans reach ready_for_pickup before either checks out.
	first, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})
	second, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 2})
	advanceToReady(t, service, first.ID)
	advanceToReady(t, service, second.ID)

	if _, errCheckout := service.Checkout(ctx, first.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("first checkout: %v", errCheckout)
	}
	_, errSecond := service.Checkout(ctx, second.ID, models.ConditionGood)
	if !errors.Is(errSecond, ErrEquipmentUnavailable) {
		t.Fatalf("expected second checkout to fail with ErrEquipmentUnavailable, got %v", errSecond)
	}
}

func TestReturnUpdatesLoanAndEquipmentTogether(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})
	advanceToReady(t, service, loan.ID)
	if _, errCheckout := service.Checkout(ctx, loan.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("checkout: %v", errCheckout)
	}

	returned, errReturn := service.Return(ctx, loan.ID, models.ConditionFair, "scratched tolex")
	if errReturn != nil {
		t.Fatalf("return: %v", errReturn)
	}
	if returned.State != string(StateReturned) || returned.ReturnedAt == nil {
		t.Fatalf("expected returned with timestamp, got %s/%v", returned.State, returned.ReturnedAt)
	}
	if returned.ConditionIn != models.ConditionFair || returned.DamageNotes != "scratched tolex" {
		t.Fatalf("expected inspection details recorded, got %q/%q", returned.ConditionIn, returned.DamageNotes)
	}

	var reloaded models.Equipment
	if errFind := db.First(&reloaded, item.ID).Error; errFind != nil {
		t.Fatalf("reload equipment: %v", errFind)
	}
	if reloaded.Status != models.EquipmentStatusAvailable {
		t.Fatalf("expected equipment available after return, got %s", reloaded.Status)
	}
	if reloaded.Condition != models.ConditionFair {
		t.Fatalf("expected equipment condition updated to fair, got %s", reloaded.Condition)
	}
}

func TestTransitionRejectsInvalidMove(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})

	_, errMove := service.Transition(ctx, loan.ID, StateCheckedOut)
	if !errors.Is(errMove, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for requested -> checked_out, got %v", errMove)
	}
	_, errUnknown := service.Transition(ctx, loan.ID, State("lost"))
	if !errors.Is(errUnknown, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for unknown state, got %v", errUnknown)
	}
}

func TestCancelByMember(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})

	// Another member cannot see or cancel the loan.
	_, errOther := service.CancelByMember(ctx, loan.ID, 2)
	if !errors.Is(errOther, ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound for foreign member, got %v", errOther)
	}

	cancelled, errCancel := service.CancelByMember(ctx, loan.ID, 1)
	if errCancel != nil {
		t.Fatalf("cancel: %v", errCancel)
	}
	if cancelled.State != string(StateCancelled) {
		t.Fatalf("expected cancelled, got %s", cancelled.State)
	}
}

func TestCancelByMemberRejectedAfterCheckout(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})
	advanceToReady(t, service, loan.ID)
	if _, errCheckout := service.Checkout(ctx, loan.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("checkout: %v", errCheckout)
	}

	_, errCancel := service.CancelByMember(ctx, loan.ID, 1)
	if !errors.Is(errCancel, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable after checkout, got %v", errCancel)
	}
}

func TestMarkOverdue(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	past := time.Now().Add(-48 * time.Hour)
	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1, DueAt: &past})
	advanceToReady(t, service, loan.ID)
	if _, errCheckout := service.Checkout(ctx, loan.ID, models.ConditionGood); errCheckout != nil {
		t.Fatalf("checkout: %v", errCheckout)
	}

	marked, errMark := service.MarkOverdue(ctx)
	if errMark != nil {
		t.Fatalf("mark overdue: %v", errMark)
	}
	if marked != 1 {
		t.Fatalf("expected 1 loan marked overdue, got %d", marked)
	}

	// The sweep is idempotent.
	again, errAgain := service.MarkOverdue(ctx)
	if errAgain != nil {
		t.Fatalf("second sweep: %v", errAgain)
	}
	if again != 0 {
		t.Fatalf("expected no further loans marked, got %d", again)
	}

	// An overdue loan can still be returned.
	if _, errReturn := service.Return(ctx, loan.ID, models.ConditionGood, ""); errReturn != nil {
		t.Fatalf("return overdue loan: %v", errReturn)
	}
}

func TestSameDayCounterReturn(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})

	// Handed over and back at the counter without a formal checkout.
	returned, errReturn := service.Return(ctx, loan.ID, models.ConditionGood, "")
	if errReturn != nil {
		t.Fatalf("same-day return: %v", errReturn)
	}
	if returned.State != string(StateReturned) {
		t.Fatalf("expected returned, got %s", returned.State)
	}
}

func TestActiveLoanForEquipment(t *testing.T) {
	db := setupLoansDB(t)
	service := NewService(db)
	ctx := context.Background()
	item := createEquipment(t, db)

	none, errNone := service.ActiveLoanForEquipment(ctx, item.ID)
	if errNone != nil || none != nil {
		t.Fatalf("expected no active loan, got %v/%v", none, errNone)
	}

	loan, _ := service.Request(ctx, RequestParams{EquipmentID: item.ID, BorrowerID: 1})
	active, errActive := service.ActiveLoanForEquipment(ctx, item.ID)
	if errActive != nil {
		t.Fatalf("active loan: %v", errActive)
	}
	if active == nil || active.ID != loan.ID {
		t.Fatalf("expected loan %d active, got %+v", loan.ID, active)
	}
}
