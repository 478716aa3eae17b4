package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/DevonCash/corvmc-backend/internal/db"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EquipmentHandler manages the equipment inventory.
type EquipmentHandler struct {
	db *gorm.DB
}

// NewEquipmentHandler constructs an EquipmentHandler.
func NewEquipmentHandler(conn *gorm.DB) *EquipmentHandler {
	return &EquipmentHandler{db: conn}
}

// List returns inventory items, optionally filtered by a name search term.
func (h *EquipmentHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Equipment{})
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		query = query.Where(db.CaseInsensitiveLikeExpr(h.db, "name"),
			db.NormalizeLikePattern(h.db, "%"+term+"%"))
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}

	var rows []models.Equipment
	if errFind := query.Order("id ASC").Limit(200).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query equipment failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"equipment": rows})
}

// equipmentRequest defines the request body for create and update.
type equipmentRequest struct {
	Name       string `json:"name"`
	Serial     string `json:"serial"`
	Status     string `json:"status"`
	Condition  string `json:"condition"`
	IsLoanable *bool  `json:"is_loanable"`
}

// Create registers an inventory item.
func (h *EquipmentHandler) Create(c *gin.Context) {
	var body equipmentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	serial := strings.TrimSpace(body.Serial)
	if name == "" || serial == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and serial are required"})
		return
	}

	item := models.Equipment{
		Name:       name,
		Serial:     serial,
		Status:     models.EquipmentStatusAvailable,
		Condition:  models.ConditionGood,
		IsLoanable: true,
	}
	if body.Status != "" {
		item.Status = strings.TrimSpace(body.Status)
	}
	if body.Condition != "" {
		item.Condition = strings.TrimSpace(body.Condition)
	}
	if body.IsLoanable != nil {
		item.IsLoanable = *body.IsLoanable
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&item).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "serial already registered"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"equipment": item})
}

// Update edits an inventory item's metadata and flags.
func (h *EquipmentHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body equipmentRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	updates := map[string]any{}
	if name := strings.TrimSpace(body.Name); name != "" {
		updates["name"] = name
	}
	if status := strings.TrimSpace(body.Status); status != "" {
		updates["status"] = status
	}
	if condition := strings.TrimSpace(body.Condition); condition != "" {
		updates["condition"] = condition
	}
	if body.IsLoanable != nil {
		updates["is_loanable"] = *body.IsLoanable
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	result := h.db.WithContext(c.Request.Context()).
		Model(&models.Equipment{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "equipment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}
