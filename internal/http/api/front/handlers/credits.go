package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreditHandler serves member credit balances and promo redemption.
type CreditHandler struct {
	ledger *ledger.Ledger
}

// NewCreditHandler constructs a CreditHandler.
func NewCreditHandler(db *gorm.DB) *CreditHandler {
	return &CreditHandler{ledger: ledger.New(db)}
}

// Balance returns the member's effective balance for one credit type.
func (h *CreditHandler) Balance(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	creditType := strings.TrimSpace(c.Param("type"))
	balance, errGet := h.ledger.GetBalance(c.Request.Context(), userID, creditType)
	if errGet != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query balance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"credit_type": creditType, "balance": balance})
}

// transactionDTO defines the transaction log response payload.
type transactionDTO struct {
	ID           uint64    `json:"id"`
	CreditType   string    `json:"credit_type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balance_after"`
	Source       string    `json:"source"`
	SourceID     *string   `json:"source_id,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transactions returns the member's transaction log, newest first.
func (h *CreditHandler) Transactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	rows, errList := h.ledger.Transactions(c.Request.Context(), userID, strings.TrimSpace(c.Param("type")), limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query transactions failed"})
		return
	}

	out := make([]transactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionDTO{
			ID:           row.ID,
			CreditType:   row.CreditType,
			Amount:       row.Amount,
			BalanceAfter: row.BalanceAfter,
			Source:       row.Source,
			SourceID:     row.SourceID,
			Description:  row.Description,
			CreatedAt:    row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// MonthlyUsage returns the blocks spent this calendar month.
func (h *CreditHandler) MonthlyUsage(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	used, errUsage := h.ledger.MonthlyUsage(c.Request.Context(), userID, strings.TrimSpace(c.Param("type")))
	if errUsage != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query usage failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"used_this_month": used})
}

// redeemPromoRequest defines the request body for promo redemption.
type redeemPromoRequest struct {
	Code string `json:"code"`
}

// RedeemPromo redeems a promo code for the acting member.
func (h *CreditHandler) RedeemPromo(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body redeemPromoRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	entry, errRedeem := h.ledger.RedeemPromoCode(c.Request.Context(), userID, code)
	switch {
	case errors.Is(errRedeem, ledger.ErrPromoCodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
	case errors.Is(errRedeem, ledger.ErrPromoAlreadyRedeemed):
		c.JSON(http.StatusConflict, gin.H{"error": "promo code already redeemed"})
	case errors.Is(errRedeem, ledger.ErrPromoMaxUsesReached):
		c.JSON(http.StatusConflict, gin.H{"error": "promo code max uses reached"})
	case errRedeem != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "redeem failed"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"credit_type":   entry.CreditType,
			"amount":        entry.Amount,
			"balance_after": entry.BalanceAfter,
		})
	}
}
