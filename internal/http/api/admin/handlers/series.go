package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/recurrence"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SeriesAdminHandler triggers recurring series expansion on demand.
type SeriesAdminHandler struct {
	db       *gorm.DB
	expander *recurrence.Expander
}

// NewSeriesAdminHandler constructs a SeriesAdminHandler.
func NewSeriesAdminHandler(conn *gorm.DB) *SeriesAdminHandler {
	return &SeriesAdminHandler{db: conn, expander: recurrence.NewExpander(conn)}
}

// Expand generates instances for one series.
func (h *SeriesAdminHandler) Expand(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var series models.RecurringSeries
	errFind := h.db.WithContext(c.Request.Context()).First(&series, id).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "series not found"})
		return
	}
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query series failed"})
		return
	}

	created, errExpand := h.expander.ExpandSeries(c.Request.Context(), &series)
	if errExpand != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "expand failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": len(created), "reservations": created})
}

// ExpandAll runs the expansion sweep across every active series.
func (h *SeriesAdminHandler) ExpandAll(c *gin.Context) {
	created, errExpand := h.expander.ExpandAll(c.Request.Context())
	if errExpand != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "expand sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
