// Package front registers the member-facing API routes.
package front

import (
	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/http/api/front/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers member-facing routes under /v0/front.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/front")

	creditHandler := handlers.NewCreditHandler(db)
	group.GET("/credits/:type/balance", creditHandler.Balance)
	group.GET("/credits/:type/transactions", creditHandler.Transactions)
	group.GET("/credits/:type/usage", creditHandler.MonthlyUsage)
	group.POST("/promo/redeem", creditHandler.RedeemPromo)

	reservationHandler := handlers.NewReservationHandler(db, cfg)
	group.GET("/reservations", reservationHandler.List)
	group.POST("/reservations", reservationHandler.Create)
	group.POST("/reservations/:id/cancel", reservationHandler.Cancel)
	group.GET("/series", reservationHandler.ListSeries)
	group.POST("/series", reservationHandler.CreateSeries)
	group.POST("/series/:id/cancel", reservationHandler.CancelSeries)

	loanHandler := handlers.NewLoanHandler(db)
	group.GET("/loans", loanHandler.List)
	group.POST("/loans", loanHandler.Request)
	group.POST("/loans/:id/cancel", loanHandler.Cancel)
	group.POST("/loans/:id/schedule-dropoff", loanHandler.ScheduleDropoff)
}
