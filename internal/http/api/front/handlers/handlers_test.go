package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/ledger"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupHandlersDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:front_handlers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	errMigrate := db.AutoMigrate(
		&models.Member{},
		&models.UserCredit{},
		&models.CreditTransaction{},
		&models.PromoCode{},
		&models.PromoRedemption{},
		&models.RecurringSeries{},
		&models.Reservation{},
		&models.Equipment{},
		&models.EquipmentLoan{},
	)
	if errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Payments: config.PaymentsConfig{CardRate: 0.029, CardFixedCents: 30, BlockPriceCents: 250},
	}
}

// asMember simulates the identity middleware for a fixed member.
func asMember(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID > 0 {
			c.Set("userID", userID)
		}
		c.Next()
	}
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestBalanceEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)
	book := ledger.New(db)
	if _, errAdd := book.AddCredits(context.Background(),
		1, 12, "free_hours", models.SourceManual, nil, ""); errAdd != nil {
		t.Fatalf("seed credits: %v", errAdd)
	}

	router := gin.New()
	router.Use(asMember(1))
	handler := NewCreditHandler(db)
	router.GET("/credits/:type/balance", handler.Balance)

	recorder := performJSON(t, router, http.MethodGet, "/credits/free_hours/balance", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp struct {
		CreditType string `json:"credit_type"`
		Balance    int64  `json:"balance"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Balance != 12 || resp.CreditType != "free_hours" {
		t.Fatalf("expected balance 12 for free_hours, got %+v", resp)
	}
}

func TestBalanceEndpointRequiresIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)

	router := gin.New()
	router.Use(asMember(0))
	handler := NewCreditHandler(db)
	router.GET("/credits/:type/balance", handler.Balance)

	recorder := performJSON(t, router, http.MethodGet, "/credits/free_hours/balance", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRedeemPromoEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)
	promo := models.PromoCode{Code: "SPRING25", CreditType: "free_hours", Amount: 8, IsActive: true}
	if errCreate := db.Create(&promo).Error; errCreate != nil {
		t.Fatalf("create promo: %v", errCreate)
	}

	router := gin.New()
	router.Use(asMember(1))
	handler := NewCreditHandler(db)
	router.POST("/promo/redeem", handler.RedeemPromo)

	recorder := performJSON(t, router, http.MethodPost, "/promo/redeem", gin.H{"code": "SPRING25"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	// Second redemption by the same member conflicts.
	recorder = performJSON(t, router, http.MethodPost, "/promo/redeem", gin.H{"code": "SPRING25"})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 on repeat redemption, got %d", recorder.Code)
	}

	// Unknown code maps to not found.
	recorder = performJSON(t, router, http.MethodPost, "/promo/redeem", gin.H{"code": "NOSUCH"})
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", recorder.Code)
	}
}

func TestCreateReservationQuotesCardTotal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)

	router := gin.New()
	router.Use(asMember(1))
	handler := NewReservationHandler(db, testConfig())
	router.POST("/reservations", handler.Create)

	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	recorder := performJSON(t, router, http.MethodPost, "/reservations", gin.H{
		"starts_at": start,
		"ends_at":   start.Add(time.Hour),
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp struct {
		Reservation     models.Reservation `json:"reservation"`
		RequiresPayment bool               `json:"requires_payment"`
		CardTotal       int64              `json:"card_total"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Reservation.Cost != 1000 {
		t.Fatalf("expected 4 blocks at 250 = 1000 cents, got %d", resp.Reservation.Cost)
	}
	if !resp.RequiresPayment {
		t.Fatal("expected cash booking to require payment")
	}
	if resp.CardTotal <= resp.Reservation.Cost {
		t.Fatalf("expected card total above the base cost, got %d", resp.CardTotal)
	}
}

func TestCreateReservationWithCredits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)
	book := ledger.New(db)
	if _, errAdd := book.AddCredits(context.Background(),
		1, 8, "free_hours", models.SourceManual, nil, ""); errAdd != nil {
		t.Fatalf("seed credits: %v", errAdd)
	}

	router := gin.New()
	router.Use(asMember(1))
	handler := NewReservationHandler(db, testConfig())
	router.POST("/reservations", handler.Create)

	start := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	recorder := performJSON(t, router, http.MethodPost, "/reservations", gin.H{
		"starts_at":   start,
		"ends_at":     start.Add(time.Hour),
		"use_credits": true,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	balance, errBalance := book.GetBalance(context.Background(), 1, "free_hours")
	if errBalance != nil {
		t.Fatalf("get balance: %v", errBalance)
	}
	if balance != 4 {
		t.Fatalf("expected 4 blocks left after a one-hour booking, got %d", balance)
	}

	// A second hour exceeds the remaining balance and rolls the booking back.
	recorder = performJSON(t, router, http.MethodPost, "/reservations", gin.H{
		"starts_at":   start.Add(2 * time.Hour),
		"ends_at":     start.Add(4 * time.Hour),
		"use_credits": true,
	})
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 on insufficient credits, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var count int64
	if errCount := db.Model(&models.Reservation{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count reservations: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected the failed booking to be rolled back, got %d rows", count)
	}

	// The booking and the deduction commit together; neither half of the
	// failed attempt may survive.
	balance, errBalance = book.GetBalance(context.Background(), 1, "free_hours")
	if errBalance != nil {
		t.Fatalf("get balance after failure: %v", errBalance)
	}
	if balance != 4 {
		t.Fatalf("expected balance untouched at 4 after the failed booking, got %d", balance)
	}
	entries, errList := book.Transactions(context.Background(), 1, "free_hours", 10)
	if errList != nil {
		t.Fatalf("list transactions: %v", errList)
	}
	if len(entries) != 2 {
		t.Fatalf("expected only the grant and the first deduction, got %d entries", len(entries))
	}
}

func TestCreateSeriesRejectsBadRule(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := setupHandlersDB(t)

	router := gin.New()
	router.Use(asMember(1))
	handler := NewReservationHandler(db, testConfig())
	router.POST("/series", handler.CreateSeries)

	recorder := performJSON(t, router, http.MethodPost, "/series", gin.H{
		"rule":       "FREQ=YEARLY",
		"start_time": "19:00",
		"end_time":   "21:00",
		"start_date": time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsupported rule, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var count int64
	if errCount := db.Model(&models.RecurringSeries{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count series: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no series stored, got %d", count)
	}
}
