package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/DevonCash/corvmc-backend/internal/settings"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingHandler exposes the runtime settings table.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(conn *gorm.DB) *SettingHandler {
	return &SettingHandler{db: conn}
}

// List returns every stored setting.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query settings failed"})
		return
	}

	out := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		out[row.Key] = json.RawMessage(row.Value)
	}
	c.JSON(http.StatusOK, gin.H{"settings": out, "updated_at": settings.UpdatedAt()})
}

// Update upserts one setting value and refreshes the in-memory snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}

	raw, errRead := c.GetRawData()
	if errRead != nil || !json.Valid(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be valid json"})
		return
	}

	if errUpdate := settings.Update(c.Request.Context(), h.db, key, json.RawMessage(raw)); errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update setting failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
