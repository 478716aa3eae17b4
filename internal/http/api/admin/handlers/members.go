package handlers

import (
	"net/http"
	"strings"

	"github.com/DevonCash/corvmc-backend/internal/db"
	"github.com/DevonCash/corvmc-backend/internal/models"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MemberHandler manages collective members.
type MemberHandler struct {
	db *gorm.DB
}

// NewMemberHandler constructs a MemberHandler.
func NewMemberHandler(conn *gorm.DB) *MemberHandler {
	return &MemberHandler{db: conn}
}

// List returns members, optionally filtered by a name/email search term.
func (h *MemberHandler) List(c *gin.Context) {
	query := h.db.WithContext(c.Request.Context()).Model(&models.Member{})
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		pattern := db.NormalizeLikePattern(h.db, "%"+term+"%")
		query = query.Where(
			h.db.Where(db.CaseInsensitiveLikeExpr(h.db, "name"), pattern).
				Or(db.CaseInsensitiveLikeExpr(h.db, "email"), pattern),
		)
	}

	var rows []models.Member
	if errFind := query.Order("id ASC").Limit(200).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query members failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": rows})
}

// createMemberRequest defines the request body for member creation.
type createMemberRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsStaff bool   `json:"is_staff"`
}

// Create registers a member.
func (h *MemberHandler) Create(c *gin.Context) {
	var body createMemberRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	name := strings.TrimSpace(body.Name)
	email := strings.TrimSpace(strings.ToLower(body.Email))
	if name == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
		return
	}

	member := models.Member{Name: name, Email: email, IsStaff: body.IsStaff, IsActive: true}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&member).Error; errCreate != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"member": member})
}
