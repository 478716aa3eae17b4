package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/loans"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoanHandler serves member-side loan operations.
type LoanHandler struct {
	db      *gorm.DB
	service *loans.Service
}

// NewLoanHandler constructs a LoanHandler.
func NewLoanHandler(db *gorm.DB) *LoanHandler {
	return &LoanHandler{db: db, service: loans.NewService(db)}
}

// loanDTO decorates a loan row with its capability flags so the UI knows
// what the member may do next.
type loanDTO struct {
	models.EquipmentLoan
	Description            string `json:"description"`
	CanBeCancelledByMember bool   `json:"can_be_cancelled_by_member"`
	RequiresMemberAction   bool   `json:"requires_member_action"`
}

func toLoanDTO(loan models.EquipmentLoan) loanDTO {
	caps, _ := loans.CapabilitiesFor(loans.State(loan.State))
	return loanDTO{
		EquipmentLoan:          loan,
		Description:            caps.Description,
		CanBeCancelledByMember: caps.CanBeCancelledByMember,
		RequiresMemberAction:   caps.RequiresMemberAction,
	}
}

// List returns the member's loans, newest first.
func (h *LoanHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var rows []models.EquipmentLoan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("borrower_id = ?", userID).
		Order("id DESC").
		Limit(100).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query loans failed"})
		return
	}

	out := make([]loanDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLoanDTO(row))
	}
	c.JSON(http.StatusOK, gin.H{"loans": out})
}

// requestLoanRequest defines the request body for a new loan.
type requestLoanRequest struct {
	EquipmentID     uint64     `json:"equipment_id"`
	DueAt           *time.Time `json:"due_at"`
	SecurityDeposit int64      `json:"security_deposit"`
	RentalFee       int64      `json:"rental_fee"`
}

// Request opens a loan request for an equipment item.
func (h *LoanHandler) Request(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body requestLoanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.EquipmentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "equipment_id is required"})
		return
	}

	loan, errRequest := h.service.Request(c.Request.Context(), loans.RequestParams{
		EquipmentID:     body.EquipmentID,
		BorrowerID:      userID,
		DueAt:           body.DueAt,
		SecurityDeposit: body.SecurityDeposit,
		RentalFee:       body.RentalFee,
	})
	switch {
	case errors.Is(errRequest, loans.ErrEquipmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
	case errors.Is(errRequest, loans.ErrEquipmentUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "equipment unavailable"})
	case errRequest != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request loan failed"})
	default:
		c.JSON(http.StatusCreated, gin.H{"loan": toLoanDTO(*loan)})
	}
}

// Cancel cancels the member's own loan while the state still allows it.
func (h *LoanHandler) Cancel(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	loan, errCancel := h.service.CancelByMember(c.Request.Context(), id, userID)
	switch {
	case errors.Is(errCancel, loans.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(errCancel, loans.ErrNotCancellable):
		c.JSON(http.StatusConflict, gin.H{"error": "loan can no longer be cancelled"})
	case errors.Is(errCancel, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "loan can no longer be cancelled"})
	case errCancel != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"loan": toLoanDTO(*loan)})
	}
}

// ScheduleDropoff moves the member's loan to dropoff scheduled.
func (h *LoanHandler) ScheduleDropoff(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	existing, errGet := h.service.Get(c.Request.Context(), id)
	if errors.Is(errGet, loans.ErrLoanNotFound) || (errGet == nil && existing.BorrowerID != userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
		return
	}
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query loan failed"})
		return
	}

	loan, errMove := h.service.Transition(c.Request.Context(), id, loans.StateDropoffScheduled)
	switch {
	case errors.Is(errMove, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "dropoff cannot be scheduled in the current state"})
	case errMove != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "schedule dropoff failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"loan": toLoanDTO(*loan)})
	}
}
