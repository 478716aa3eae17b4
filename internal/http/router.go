// Package http assembles the gin engine for the member and admin APIs.
package http

import (
	"net/http"

	"github.com/DevonCash/corvmc-backend/internal/config"
	"github.com/DevonCash/corvmc-backend/internal/http/api/admin"
	"github.com/DevonCash/corvmc-backend/internal/http/api/front"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(), MemberIdentity())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	front.RegisterFrontRoutes(r, db, cfg)
	admin.RegisterAdminRoutes(r, db, cfg)

	return r
}
