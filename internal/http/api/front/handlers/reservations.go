package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/payments"
	"github.com/DevonCash/corvmc-backend/internal/recurrence"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// blockMinutes is the smallest billable rehearsal unit.
const blockMinutes = 15

// ReservationHandler serves member reservations and recurring series.
type ReservationHandler struct {
	db     *gorm.DB
	fees   payments.FeeSchedule
	prices config.PaymentsConfig
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(db *gorm.DB, cfg *config.Config) *ReservationHandler {
	prices := config.PaymentsConfig{}
	if cfg != nil {
		prices = cfg.Payments
	}
	return &ReservationHandler{
		db:     db,
		fees:   payments.FeeSchedule{Rate: prices.CardRate, Fixed: prices.CardFixedCents},
		prices: prices,
	}
}

// List returns the member's reservations, newest first.
func (h *ReservationHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var rows []models.Reservation
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("starts_at DESC").
		Limit(100).
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query reservations failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rows})
}

// createReservationRequest defines the request body for a manual booking.
type createReservationRequest struct {
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	UseCredits bool      `json:"use_credits"`
}

// Create books the rehearsal space directly, outside any series. With
// use_credits the time is paid in free-hour blocks; otherwise the booking
// carries a cash cost and the response quotes the card total that nets it.
func (h *ReservationHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createReservationRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !body.EndsAt.After(body.StartsAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ends_at must be after starts_at"})
		return
	}

	blocks := int64(body.EndsAt.Sub(body.StartsAt) / (blockMinutes * time.Minute))
	if blocks < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reservation shorter than one block"})
		return
	}

	res := models.Reservation{
		UserID:        userID,
		StartsAt:      body.StartsAt.UTC(),
		EndsAt:        body.EndsAt.UTC(),
		Status:        models.ReservationStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}

	if body.UseCredits {
		res.PaymentStatus = models.PaymentStatusComped
		// One transaction covers both writes: a failed deduction rolls the
		// booking back with it.
		errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			if errCreate := tx.Create(&res).Error; errCreate != nil {
				return errCreate
			}
			_, errDeduct := ledger.New(tx).DeductCredits(c.Request.Context(), userID, blocks,
				settings.CreditTypeFreeHours, models.SourceReservation, ledger.SourceID(res.ID))
			return errDeduct
		})
		if errTx != nil {
			if errors.Is(errTx, ledger.ErrInsufficientCredits) {
				c.JSON(http.StatusConflict, gin.H{"error": "insufficient credits"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create reservation failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"reservation": res, "blocks_charged": blocks})
		return
	}

	res.Cost = blocks * h.prices.BlockPriceCents
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&res).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create reservation failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"reservation":      res,
		"requires_payment": payments.RequiresPayment(res.Cost, res.PaymentStatus),
		"card_total":       h.fees.GrossUp(res.Cost),
	})
}

// cancelRequest carries the member's cancellation reason.
type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel marks a reservation cancelled. The row persists for audit.
func (h *ReservationHandler) Cancel(c *gin.Context) {
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

	var body cancelRequest
	_ = c.ShouldBindJSON(&body)

	result := h.db.WithContext(c.Request.Context()).
		Model(&models.Reservation{}).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, models.ReservationStatusCancelled).
		Updates(map[string]any{
			"status":              models.ReservationStatusCancelled,
			"cancellation_reason": strings.TrimSpace(body.Reason),
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "reservation not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.ReservationStatusCancelled})
}

// createSeriesRequest defines the request body for a recurring series.
type createSeriesRequest struct {
	TargetType     string     `json:"target_type"`
	Rule           string     `json:"rule"`
	StartTime      string     `json:"start_time"`
	EndTime        string     `json:"end_time"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	MaxAdvanceDays int        `json:"max_advance_days"`
}

// ListSeries returns the member's recurring series.
func (h *ReservationHandler) ListSeries(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var rows []models.RecurringSeries
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query series failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": rows})
}

// CreateSeries validates the rule, stores the series, and expands it
// immediately so the member sees their upcoming instances.
func (h *ReservationHandler) CreateSeries(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body createSeriesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if _, errRule := recurrence.ParseRule(body.Rule, body.StartDate); errRule != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errRule.Error()})
		return
	}
	if body.MaxAdvanceDays <= 0 {
		body.MaxAdvanceDays = 90
	}

	series := models.RecurringSeries{
		UserID:         userID,
		TargetType:     strings.TrimSpace(body.TargetType),
		Rule:           strings.TrimSpace(body.Rule),
		StartTime:      strings.TrimSpace(body.StartTime),
		EndTime:        strings.TrimSpace(body.EndTime),
		StartDate:      body.StartDate.UTC(),
		EndDate:        body.EndDate,
		MaxAdvanceDays: body.MaxAdvanceDays,
		Status:         models.SeriesStatusActive,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&series).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create series failed"})
		return
	}

	created, errExpand := recurrence.NewExpander(h.db).ExpandSeries(c.Request.Context(), &series)
	if errExpand != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errExpand.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"series": series, "instances_created": len(created)})
}

// CancelSeries stops future generation. Existing instances stay put.
func (h *ReservationHandler) CancelSeries(c *gin.Context) {
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

	result := h.db.WithContext(c.Request.Context()).
		Model(&models.RecurringSeries{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.SeriesStatusActive).
		Update("status", models.SeriesStatusCancelled)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel series failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.SeriesStatusCancelled})
}
