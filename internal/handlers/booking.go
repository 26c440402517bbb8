package handlers

import (
	"net/http"
	"time"

	"fotobox-crm/internal/models"
	"fotobox-crm/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type BookingHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewBookingHandler(db *gorm.DB, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		db:     db,
		logger: logger,
	}
}

// UpdateLayoutRequest carries the customer's photo layout choices. Pointer
// fields distinguish "not sent" from "set to empty"; only sent fields are
// written.
type UpdateLayoutRequest struct {
	Style    *string `json:"style"`
	Color    *string `json:"farbe"`
	Text     *string `json:"text"`
	Date     *string `json:"datum"`
	Approved *bool   `json:"kundenfreigabe"`
}

// UpdateInvoiceRequest carries the customer's invoice address
type UpdateInvoiceRequest struct {
	Name       string `json:"name"`
	Street     string `json:"strasse" binding:"required"`
	PostalCode string `json:"plz" binding:"required"`
	City       string `json:"ort" binding:"required"`
	CostCenter string `json:"kostenstelle"`
}

// GetOrder handles the customer order portal lookup
// @Summary Get order
// @Description Resolve a customer-access token to its booking with ordered line items
// @Tags orders
// @Produce json
// @Param token path string true "Customer access token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/auftrag/{token} [get]
func (h *BookingHandler) GetOrder(c *gin.Context) {
	booking, ok := h.findBookingByToken(c)
	if !ok {
		return
	}

	service.SortBookingItemsForDisplay(booking.Items)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"buchung": booking,
		"artikel": booking.Items,
	})
}

// UpdateLayout handles selective photo layout updates from the customer
// @Summary Update photo layout
// @Description Update the photo layout of a booking; only sent fields change
// @Tags orders
// @Accept json
// @Produce json
// @Param token path string true "Customer access token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/auftrag/{token}/layout [patch]
func (h *BookingHandler) UpdateLayout(c *gin.Context) {
	var req UpdateLayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	booking, ok := h.findBookingByToken(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{}
	if req.Style != nil {
		updates["layout_style"] = *req.Style
	}
	if req.Color != nil {
		updates["layout_color"] = *req.Color
	}
	if req.Text != nil {
		updates["layout_text"] = *req.Text
	}
	if req.Date != nil {
		updates["layout_date"] = *req.Date
	}
	if req.Approved != nil {
		updates["layout_approved"] = *req.Approved

		// The approval timestamp is stamped once and never overwritten
		if *req.Approved && booking.LayoutApprovedAt == nil {
			updates["layout_approved_at"] = time.Now().UTC()
		}
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Keine Felder zum Aktualisieren übergeben"})
		return
	}

	if err := h.db.Model(booking).Updates(updates).Error; err != nil {
		h.logger.Error("Failed to update layout", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update layout"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Layout erfolgreich gespeichert",
	})
}

// UpdateInvoiceAddress handles invoice address changes from the customer
// @Summary Update invoice address
// @Description Replace the invoice address of a booking and timestamp the change
// @Tags orders
// @Accept json
// @Produce json
// @Param token path string true "Customer access token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/auftrag/{token}/rechnung [patch]
func (h *BookingHandler) UpdateInvoiceAddress(c *gin.Context) {
	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	booking, ok := h.findBookingByToken(c)
	if !ok {
		return
	}

	updates := map[string]interface{}{
		"billing_name":        req.Name,
		"billing_street":      req.Street,
		"billing_postal_code": req.PostalCode,
		"billing_city":        req.City,
		"billing_cost_center": req.CostCenter,
		"billing_changed_at":  time.Now().UTC(),
	}

	if err := h.db.Model(booking).Updates(updates).Error; err != nil {
		h.logger.Error("Failed to update invoice address", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invoice address"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// findBookingByToken resolves the booking for the token path param and
// writes the error response itself when it cannot.
func (h *BookingHandler) findBookingByToken(c *gin.Context) (*models.Booking, bool) {
	var booking models.Booking
	err := h.db.Preload("Items.Variant.Article").
		First(&booking, "customer_access_token = ?", c.Param("token")).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Buchung nicht gefunden"})
		} else {
			h.logger.Error("Failed to fetch booking", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch booking"})
		}
		return nil, false
	}

	return &booking, true
}
