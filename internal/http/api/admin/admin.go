// Package admin registers the staff-facing API routes.
package admin

import (
	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/http/api/admin/handlers"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers staff routes under /v0/admin.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0/admin")

	memberHandler := handlers.NewMemberHandler(db)
	group.GET("/members", memberHandler.List)
	group.POST("/members", memberHandler.Create)

	creditHandler := handlers.NewCreditAdminHandler(db)
	group.POST("/credits/grant", creditHandler.Grant)
	group.POST("/credits/deduct", creditHandler.Deduct)
	group.POST("/credits/allocate", creditHandler.Allocate)
	group.POST("/credits/allocate-all", creditHandler.AllocateAll)

	promoHandler := handlers.NewPromoCodeHandler(db)
	group.GET("/promo-codes", promoHandler.List)
	group.POST("/promo-codes", promoHandler.Create)
	group.POST("/promo-codes/:id/disable", promoHandler.Disable)

	equipmentHandler := handlers.NewEquipmentHandler(db)
	group.GET("/equipment", equipmentHandler.List)
	group.POST("/equipment", equipmentHandler.Create)
	group.PUT("/equipment/:id", equipmentHandler.Update)

	loanHandler := handlers.NewLoanAdminHandler(db)
	group.GET("/loans", loanHandler.List)
	group.POST("/loans/:id/prepare", loanHandler.Prepare)
	group.POST("/loans/:id/ready", loanHandler.Ready)
	group.POST("/loans/:id/checkout", loanHandler.Checkout)
	group.POST("/loans/:id/process-return", loanHandler.ProcessReturn)
	group.POST("/loans/:id/report-damage", loanHandler.ReportDamage)
	group.POST("/loans/:id/return", loanHandler.Return)
	group.POST("/loans/:id/cancel", loanHandler.Cancel)
	group.POST("/loans/mark-overdue", loanHandler.MarkOverdue)

	seriesHandler := handlers.NewSeriesAdminHandler(db)
	group.POST("/series/:id/expand", seriesHandler.Expand)
	group.POST("/series/expand-all", seriesHandler.ExpandAll)

	settingHandler := handlers.NewSettingHandler(db)
	group.GET("/settings", settingHandler.List)
	group.PUT("/settings/:key", settingHandler.Update)
}
