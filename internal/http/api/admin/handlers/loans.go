package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/DevonCash/corvmc-backend/internal/loans"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// LoanAdminHandler serves the staff side of the loan lifecycle.
type LoanAdminHandler struct {
	db      *gorm.DB
	service *loans.Service
}

// NewLoanAdminHandler constructs a LoanAdminHandler.
func NewLoanAdminHandler(conn *gorm.DB) *LoanAdminHandler {
	return &LoanAdminHandler{db: conn, service: loans.NewService(conn)}
}

// List returns loans, optionally filtered by state or borrower.
func (h *LoanAdminHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.EquipmentLoan{})
	if state := strings.TrimSpace(c.Query("state")); state != "" {
		query = query.Where("state = ?", state)
	}
	if borrower := strings.TrimSpace(c.Query("borrower_id")); borrower != "" {
		id, errParse := strconv.ParseUint(borrower, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid borrower_id"})
			return
		}
		query = query.Where("borrower_id = ?", id)
	}

	var rows []models.EquipmentLoan
	if errFind := query.Order("id DESC").Limit(200).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query loans failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"loans": rows})
}

// Prepare moves a requested loan into staff preparation.
func (h *LoanAdminHandler) Prepare(c *gin.Context) {
	h.transition(c, loans.StateStaffPreparing)
}

// Ready marks a prepared loan as ready for pickup.
func (h *LoanAdminHandler) Ready(c *gin.Context) {
	h.transition(c, loans.StateReadyForPickup)
}

// checkoutRequest defines the request body for Checkout.
type checkoutRequest struct {
	ConditionOut string `json:"condition_out"`
}

// Checkout hands the equipment to the borrower, recording the outgoing
// condition. Conflicting checkouts of the same item lose here with a 409.
func (h *LoanAdminHandler) Checkout(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var body checkoutRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	condition := strings.TrimSpace(body.ConditionOut)
	if condition == "" {
		condition = models.ConditionGood
	}

	loan, errCheckout := h.service.Checkout(c.Request.Context(), id, condition)
	switch {
	case errors.Is(errCheckout, loans.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(errCheckout, loans.ErrEquipmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
	case errors.Is(errCheckout, loans.ErrEquipmentUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "equipment unavailable"})
	case errors.Is(errCheckout, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "loan is not ready for checkout"})
	case errCheckout != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "checkout failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"loan": loan})
	}
}

// ProcessReturn moves a loan into the return inspection state.
func (h *LoanAdminHandler) ProcessReturn(c *gin.Context) {
	h.transition(c, loans.StateStaffProcessingReturn)
}

// reportDamageRequest defines the request body for ReportDamage.
type reportDamageRequest struct {
	DamageNotes string `json:"damage_notes"`
}

// ReportDamage flags a loan under inspection as damaged and records notes.
func (h *LoanAdminHandler) ReportDamage(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var body reportDamageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	loan, errMove := h.service.Transition(c.Request.Context(), id, loans.StateDamageReported)
	if errMove != nil {
		switch {
		case errors.Is(errMove, loans.ErrLoanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
		case errors.Is(errMove, loans.ErrInvalidTransition):
			c.JSON(http.StatusConflict, gin.H{"error": "damage cannot be reported in the current state"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report damage failed"})
		}
		return
	}

	if notes := strings.TrimSpace(body.DamageNotes); notes != "" {
		if errSave := h.db.WithContext(c.Request.Context()).
			Model(&models.EquipmentLoan{}).
			Where("id = ?", loan.ID).
			Update("damage_notes", notes).Error; errSave != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "save damage notes failed"})
			return
		}
		loan.DamageNotes = notes
	}
	c.JSON(http.StatusOK, gin.H{"loan": loan})
}

// returnRequest defines the request body for Return.
type returnRequest struct {
	ConditionIn string `json:"condition_in"`
	DamageNotes string `json:"damage_notes"`
}

// Return closes the loan and releases the equipment.
func (h *LoanAdminHandler) Return(c *gin.Context) {
	id, ok := loanID(c)
	if !ok {
		return
	}
	var body returnRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	loan, errReturn := h.service.Return(c.Request.Context(), id,
		strings.TrimSpace(body.ConditionIn), strings.TrimSpace(body.DamageNotes))
	switch {
	case errors.Is(errReturn, loans.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(errReturn, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "loan cannot be returned in the current state"})
	case errReturn != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "return failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"loan": loan})
	}
}

// Cancel cancels a loan on the staff side. Any non-terminal state may be
// cancelled by staff.
func (h *LoanAdminHandler) Cancel(c *gin.Context) {
	h.transition(c, loans.StateCancelled)
}

// MarkOverdue runs the overdue sweep immediately.
func (h *LoanAdminHandler) MarkOverdue(c *gin.Context) {
	marked, errMark := h.service.MarkOverdue(c.Request.Context())
	if errMark != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "overdue sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// transition applies a plain state move and maps service errors to HTTP.
func (h *LoanAdminHandler) transition(c *gin.Context, to loans.State) {
	id, ok := loanID(c)
	if !ok {
		return
	}

	loan, errMove := h.service.Transition(c.Request.Context(), id, to)
	switch {
	case errors.Is(errMove, loans.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan not found"})
	case errors.Is(errMove, loans.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "state transition not allowed"})
	case errMove != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transition failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"loan": loan})
	}
}

func loanID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
