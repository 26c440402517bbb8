package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"fotobox-crm/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OfferHandler struct {
	offers      *service.OfferService
	conversions *service.ConversionService
	logger      *zap.Logger
}

func NewOfferHandler(offers *service.OfferService, conversions *service.ConversionService, logger *zap.Logger) *OfferHandler {
	return &OfferHandler{
		offers:      offers,
		conversions: conversions,
		logger:      logger,
	}
}

// ConfirmOfferRequest carries the customer's confirmed contact data and
// billing address.
type ConfirmOfferRequest struct {
	Contact service.ContactInput `json:"kontakt" binding:"required"`
	Address service.AddressInput `json:"rechnungsadresse"`
}

// ConfirmGroupRequest additionally names the subset of group leads to
// confirm; empty means every open lead of the group.
type ConfirmGroupRequest struct {
	LeadIDs []uint               `json:"lead_ids"`
	Contact service.ContactInput `json:"kontakt" binding:"required"`
	Address service.AddressInput `json:"rechnungsadresse"`
}

// IssueOfferLink handles minting an offer token for a lead
// @Summary Issue offer link
// @Description Mint a fresh offer token for a lead and move it into the offer stage
// @Tags offers
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/leads/{id}/angebot-link [post]
func (h *OfferHandler) IssueOfferLink(c *gin.Context) {
	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID"})
		return
	}

	lead, err := h.offers.IssueOfferLink(c.Request.Context(), uint(leadID))
	if err != nil {
		h.respondServiceError(c, err, "Failed to issue offer link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   lead.OfferToken,
	})
}

// GetOffer handles resolving an offer token for the customer-facing page
// @Summary Get offer
// @Description Resolve an offer token to its lead, ordered line items and group siblings
// @Tags offers
// @Produce json
// @Param token path string true "Offer token"
// @Success 200 {object} service.OfferView
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/angebot/{token} [get]
func (h *OfferHandler) GetOffer(c *gin.Context) {
	view, err := h.offers.FetchOffer(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to fetch offer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"lead":    view.Lead,
		"gruppe":  view.Siblings,
	})
}

// ConfirmOffer handles the one-shot conversion of an offer into a booking
// @Summary Confirm offer
// @Description Convert the lead behind an offer token into a customer and booking
// @Tags offers
// @Accept json
// @Produce json
// @Param token path string true "Offer token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/v1/angebot/{token}/bestaetigen [post]
func (h *OfferHandler) ConfirmOffer(c *gin.Context) {
	var req ConfirmOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	view, err := h.offers.FetchOffer(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.respondServiceError(c, err, "Failed to resolve offer token")
		return
	}

	booking, err := h.conversions.ConvertLeadToBooking(c.Request.Context(), view.Lead.ID, req.Contact, req.Address)
	if err != nil {
		h.respondServiceError(c, err, "Failed to confirm offer")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"buchung_id":     booking.ID,
		"buchungsnummer": booking.BookingNumber,
	})
}

// ConfirmGroup handles confirming several leads that share one offer token
// @Summary Confirm offer group
// @Description Convert all (or a subset of) open leads of an offer group into bookings
// @Tags offers
// @Accept json
// @Produce json
// @Param token path string true "Offer token"
// @Success 200 {object} service.GroupResult
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/angebot/{token}/gruppe-bestaetigen [post]
func (h *OfferHandler) ConfirmGroup(c *gin.Context) {
	var req ConfirmGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	result, err := h.conversions.ConfirmGroup(c.Request.Context(), c.Param("token"), req.LeadIDs, req.Contact, req.Address)
	if err != nil {
		h.respondServiceError(c, err, "Failed to confirm group")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// respondServiceError maps service failures onto HTTP statuses
func (h *OfferHandler) respondServiceError(c *gin.Context, err error, logMessage string) {
	var validationErr *service.ValidationError

	switch {
	case errors.Is(err, service.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead nicht gefunden"})
	case errors.Is(err, service.ErrAlreadyConverted):
		c.JSON(http.StatusConflict, gin.H{"error": "Angebot wurde bereits bestätigt"})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Validation failed",
			"field":   validationErr.Field,
			"details": validationErr.Message,
		})
	default:
		h.logger.Error(logMessage, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": logMessage})
	}
}
