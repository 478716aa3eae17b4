package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PromoCodeHandler manages promo codes.
type PromoCodeHandler struct {
	db *gorm.DB
}

// NewPromoCodeHandler constructs a PromoCodeHandler.
func NewPromoCodeHandler(db *gorm.DB) *PromoCodeHandler {
	return &PromoCodeHandler{db: db}
}

// List returns all promo codes with their use counts.
func (h *PromoCodeHandler) List(c *gin.Context) {
	var rows []models.PromoCode
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("id DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query promo codes failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"promo_codes": rows})
}

// createPromoCodeRequest defines the request body for promo code creation.
type createPromoCodeRequest struct {
	Code        string     `json:"code"`
	Description string     `json:"description"`
	CreditType  string     `json:"credit_type"`
	Amount      int64      `json:"amount"`
	MaxUses     int        `json:"max_uses"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Create registers a promo code.
func (h *PromoCodeHandler) Create(c *gin.Context) {
	var body createPromoCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	creditType := strings.TrimSpace(body.CreditType)
	if code == "" || creditType == "" || body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code, credit_type and a positive amount are required"})
		return
	}

	promo := models.PromoCode{
		Code:        code,
		Description: strings.TrimSpace(body.Description),
		CreditType:  creditType,
		Amount:      body.Amount,
		MaxUses:     body.MaxUses,
		IsActive:    true,
		ExpiresAt:   body.ExpiresAt,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&promo).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "code already exists"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"promo_code": promo})
}

// Disable deactivates a promo code without deleting its redemption history.
func (h *PromoCodeHandler) Disable(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&models.PromoCode{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disable failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "promo code not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"disabled": true})
}
