package handlers

import (
	"net/http"
	"strconv"

	"fotobox-crm/config"
	"fotobox-crm/internal/models"
	"fotobox-crm/pkg/ids"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LeadHandler struct {
	db     *gorm.DB
	logger *zap.Logger
	cfg    *config.Config
}

func NewLeadHandler(db *gorm.DB, logger *zap.Logger, cfg *config.Config) *LeadHandler {
	return &LeadHandler{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}
}

// CreateLeadRequest is the intake webhook payload. The shared secret travels
// in the body, not a header, because the form builder posting it cannot set
// custom headers.
type CreateLeadRequest struct {
	Secret string `json:"secret"`

	FirstName    string              `json:"vorname" binding:"required"`
	LastName     string              `json:"nachname"`
	Email        string              `json:"email"`
	Phone        string              `json:"telefon"`
	CustomerType models.CustomerType `json:"kundentyp"`
	CompanyName  string              `json:"firmenname"`

	EventDate  string `json:"event_datum"`
	EventStart string `json:"event_startzeit"`
	EventEnd   string `json:"event_endzeit"`
	EventVenue string `json:"event_ort"`
	GuestCount int    `json:"gaesteanzahl"`

	ContactPreference string `json:"kontaktwunsch"`
	ImportantRaw      string `json:"wichtig_raw"`
	ExtrasRaw         string `json:"extras_raw"`
	PriceQuestionsRaw string `json:"preisfragen_raw"`
	OccasionRaw       string `json:"anlass_raw"`
	ExperienceRaw     string `json:"erfahrung_raw"`
	PriceTypeRaw      string `json:"preistyp_raw"`
	GoalRaw           string `json:"ziel_raw"`
	SourceRaw         string `json:"quelle_raw"`
	CustomerFreeText  string `json:"freitext_kunde_raw"`
	InternalComment   string `json:"intern_kommentar"`

	AiType      string `json:"ai_typ"`
	AiComment   string `json:"ai_kommentar"`
	AiScoreJSON string `json:"ai_score_json"`
}

// CreateLead handles the intake webhook
// @Summary Create lead via webhook
// @Description Accept a new lead from the public inquiry form
// @Tags leads
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/v1/leads [post]
func (h *LeadHandler) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	if req.Secret != h.cfg.Webhook.Secret {
		h.logger.Warn("Rejected webhook call with invalid secret", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	customerType := req.CustomerType
	if customerType == "" {
		customerType = models.CustomerTypePrivate
	}

	lead := models.Lead{
		ExternalID:        ids.NewLeadID(),
		GroupID:           ids.NewGroupID(),
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		CustomerType:      customerType,
		CompanyName:       req.CompanyName,
		EventDate:         req.EventDate,
		EventStart:        req.EventStart,
		EventEnd:          req.EventEnd,
		EventVenue:        req.EventVenue,
		GuestCount:        req.GuestCount,
		ContactPreference: req.ContactPreference,
		ImportantRaw:      req.ImportantRaw,
		ExtrasRaw:         req.ExtrasRaw,
		PriceQuestionsRaw: req.PriceQuestionsRaw,
		OccasionRaw:       req.OccasionRaw,
		ExperienceRaw:     req.ExperienceRaw,
		PriceTypeRaw:      req.PriceTypeRaw,
		GoalRaw:           req.GoalRaw,
		SourceRaw:         req.SourceRaw,
		CustomerFreeText:  req.CustomerFreeText,
		InternalComment:   req.InternalComment,
		AiType:            req.AiType,
		AiComment:         req.AiComment,
		AiScoreJSON:       req.AiScoreJSON,
		Status:            models.LeadStatusNew,
	}

	if err := h.db.Create(&lead).Error; err != nil {
		h.logger.Error("Failed to store lead", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store lead"})
		return
	}

	h.logger.Info("Lead created via webhook",
		zap.String("external_id", lead.ExternalID),
		zap.String("group_id", lead.GroupID),
	)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Lead gespeichert",
		"lead_id":  lead.ExternalID,
		"group_id": lead.GroupID,
	})
}

// GetLead handles fetching a single lead
// @Summary Get lead
// @Description Get one lead with its line items and location
// @Tags leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} models.Lead
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/leads/{id} [get]
func (h *LeadHandler) GetLead(c *gin.Context) {
	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID"})
		return
	}

	var lead models.Lead
	if err := h.db.Preload("Items.Variant.Article").Preload("Location").First(&lead, uint(leadID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lead nicht gefunden"})
		} else {
			h.logger.Error("Failed to fetch lead", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch lead"})
		}
		return
	}

	c.JSON(http.StatusOK, lead)
}

// GetGroupLeads handles listing all leads of a group
// @Summary List group leads
// @Description Get all leads sharing a group id, ordered by event date and start time
// @Tags leads
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/leads/group/{groupId} [get]
func (h *LeadHandler) GetGroupLeads(c *gin.Context) {
	groupID := c.Param("groupId")

	var leads []models.Lead
	err := h.db.Preload("Items.Variant.Article").
		Where("group_id = ?", groupID).
		Order("event_date ASC, event_start ASC").
		Find(&leads).Error
	if err != nil {
		h.logger.Error("Failed to fetch group leads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch group leads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group_id": groupID,
		"leads":    leads,
	})
}

// CloneLead handles duplicating a lead into the same group
// @Summary Clone lead
// @Description Duplicate a lead with a fresh external id, marking the copy in the first name
// @Tags leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/leads/{id}/clone [post]
func (h *LeadHandler) CloneLead(c *gin.Context) {
	leadID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid lead ID"})
		return
	}

	var original models.Lead
	if err := h.db.First(&original, uint(leadID)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Lead nicht gefunden"})
		} else {
			h.logger.Error("Failed to fetch lead for cloning", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch lead"})
		}
		return
	}

	// A lead without a group gets one now, shared with its clone
	groupID := original.GroupID
	if groupID == "" {
		groupID = ids.NewGroupID()
		if err := h.db.Model(&original).Update("group_id", groupID).Error; err != nil {
			h.logger.Error("Failed to backfill group id", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clone lead"})
			return
		}
	}

	status := original.Status
	if status == "" {
		status = models.LeadStatusNew
	}

	clone := models.Lead{
		ExternalID:        ids.NewLeadID(),
		GroupID:           groupID,
		FirstName:         original.FirstName + " (Kopie)",
		LastName:          original.LastName,
		Email:             original.Email,
		Phone:             original.Phone,
		CustomerType:      original.CustomerType,
		CompanyName:       original.CompanyName,
		EventDate:         original.EventDate,
		EventStart:        original.EventStart,
		EventEnd:          original.EventEnd,
		EventVenue:        original.EventVenue,
		LocationID:        original.LocationID,
		GuestCount:        original.GuestCount,
		ContactPreference: original.ContactPreference,
		ImportantRaw:      original.ImportantRaw,
		ExtrasRaw:         original.ExtrasRaw,
		PriceQuestionsRaw: original.PriceQuestionsRaw,
		OccasionRaw:       original.OccasionRaw,
		ExperienceRaw:     original.ExperienceRaw,
		PriceTypeRaw:      original.PriceTypeRaw,
		GoalRaw:           original.GoalRaw,
		SourceRaw:         original.SourceRaw,
		CustomerFreeText:  original.CustomerFreeText,
		InternalComment:   original.InternalComment,
		AiType:            original.AiType,
		AiComment:         original.AiComment,
		AiScoreJSON:       original.AiScoreJSON,
		Status:            status,
	}

	if err := h.db.Create(&clone).Error; err != nil {
		h.logger.Error("Failed to clone lead", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clone lead"})
		return
	}

	h.logger.Info("Lead cloned",
		zap.Uint("original_id", original.ID),
		zap.Uint("clone_id", clone.ID),
		zap.String("group_id", groupID),
	)

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Lead erfolgreich geklont",
		"lead":     clone,
		"group_id": groupID,
	})
}
