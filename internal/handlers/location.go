package handlers

import (
	"net/http"
	"strings"

	"fotobox-crm/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LocationHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLocationHandler(db *gorm.DB, logger *zap.Logger) *LocationHandler {
	return &LocationHandler{
		db:     db,
		logger: logger,
	}
}

// CreateLocationRequest represents the location creation payload
type CreateLocationRequest struct {
	Name          string `json:"name" binding:"required"`
	Street        string `json:"strasse"`
	PostalCode    string `json:"plz"`
	City          string `json:"ort"`
	ContactPerson string `json:"ansprechpartner"`
	Phone         string `json:"telefon"`
	Note          string `json:"hinweis"`
}

// CreateLocation handles creating a venue location
// @Summary Create location
// @Description Create a venue location for lead and booking denormalization
// @Tags locations
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/locations [post]
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var req CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	location := models.Location{
		Name:          req.Name,
		Street:        req.Street,
		PostalCode:    req.PostalCode,
		City:          req.City,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Note:          req.Note,
	}

	if err := h.db.Create(&location).Error; err != nil {
		if isUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"error": "Location bereits vorhanden"})
			return
		}
		h.logger.Error("Failed to create location", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create location"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"location": location,
	})
}

// ListLocations handles listing all locations
// @Summary List locations
// @Description Get all venue locations ordered by name
// @Tags locations
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/locations [get]
func (h *LocationHandler) ListLocations(c *gin.Context) {
	var locations []models.Location
	if err := h.db.Order("name ASC").Find(&locations).Error; err != nil {
		h.logger.Error("Failed to fetch locations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch locations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"locations": locations,
	})
}

// isUniqueViolation matches unique-constraint errors across postgres and sqlite
func isUniqueViolation(err error) bool {
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique failed")
}
