package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CreditAdminHandler runs staff credit adjustments and allocations.
type CreditAdminHandler struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

// NewCreditAdminHandler constructs a CreditAdminHandler.
func NewCreditAdminHandler(db *gorm.DB) *CreditAdminHandler {
	return &CreditAdminHandler{db: db, ledger: ledger.New(db)}
}

// adjustCreditsRequest defines the request body for grants and deductions.
type adjustCreditsRequest struct {
	UserID      uint64 `json:"user_id"`
	CreditType  string `json:"credit_type"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

func (r *adjustCreditsRequest) validate() string {
	if r.UserID == 0 {
		return "user_id is required"
	}
	if strings.TrimSpace(r.CreditType) == "" {
		return "credit_type is required"
	}
	if r.Amount <= 0 {
		return "amount must be positive"
	}
	return ""
}

// Grant adds credits to a member balance as a manual adjustment.
func (h *CreditAdminHandler) Grant(c *gin.Context) {
	var body adjustCreditsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	entry, errAdd := h.ledger.AddCredits(c.Request.Context(), body.UserID, body.Amount,
		strings.TrimSpace(body.CreditType), models.SourceManual, nil, strings.TrimSpace(body.Description))
	if errAdd != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "grant failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_after": entry.BalanceAfter})
}

// Deduct removes credits from a member balance as a manual adjustment.
func (h *CreditAdminHandler) Deduct(c *gin.Context) {
	var body adjustCreditsRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if msg := body.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	entry, errDeduct := h.ledger.DeductCredits(c.Request.Context(), body.UserID, body.Amount,
		strings.TrimSpace(body.CreditType), models.SourceManual, nil)
	if errors.Is(errDeduct, ledger.ErrInsufficientCredits) {
		c.JSON(http.StatusConflict, gin.H{"error": "insufficient credits"})
		return
	}
	if errDeduct != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deduct failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance_after": entry.BalanceAfter})
}

// allocateRequest defines the request body for a single-member allocation.
type allocateRequest struct {
	UserID     uint64 `json:"user_id"`
	CreditType string `json:"credit_type"`
	Amount     int64  `json:"amount"`
}

// Allocate runs the monthly allocation for one member and credit type. A
// repeat call within the same month is a no-op.
func (h *CreditAdminHandler) Allocate(c *gin.Context) {
	var body allocateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	creditType := strings.TrimSpace(body.CreditType)
	if body.UserID == 0 || creditType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id and credit_type are required"})
		return
	}
	amount := body.Amount
	if amount <= 0 {
		rule, ok := settings.CreditTypeRuleFor(creditType)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown credit type and no amount given"})
			return
		}
		amount = rule.MonthlyAmount
	}

	entry, errAllocate := h.ledger.AllocateMonthlyCredits(c.Request.Context(), body.UserID, amount, creditType)
	if errAllocate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "allocation failed"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"allocated": false, "reason": "already allocated this month"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocated": true, "amount": entry.Amount, "balance_after": entry.BalanceAfter})
}

// AllocateAll runs the monthly allocation for every active member across all
// configured credit types. Idempotency makes re-runs safe.
func (h *CreditAdminHandler) AllocateAll(c *gin.Context) {
	var memberIDs []uint64
	if errFind := h.db.WithContext(c.Request.Context()).
		Model(&models.Member{}).
		Where("is_active = ?", true).
		Pluck("id", &memberIDs).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query members failed"})
		return
	}

	rules := settings.CreditTypeRules()
	allocated := 0
	for _, memberID := range memberIDs {
		for creditType, rule := range rules {
			if rule.MonthlyAmount <= 0 {
				continue
			}
			entry, errAllocate := h.ledger.AllocateMonthlyCredits(c.Request.Context(), memberID, rule.MonthlyAmount, creditType)
			if errAllocate != nil {
				log.WithError(errAllocate).WithFields(log.Fields{
					"user_id":     memberID,
					"credit_type": creditType,
				}).Warn("monthly allocation failed")
				continue
			}
			if entry != nil {
				allocated++
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"members": len(memberIDs), "allocations": allocated})
}
