package service

import (
	"context"
	"sort"
	"time"

	"fotobox-crm/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OfferView is what the customer-facing offer page renders: the lead with
// its line items in display order, plus any group siblings.
type OfferView struct {
	Lead     *models.Lead  `json:"lead"`
	Siblings []models.Lead `json:"gruppe,omitempty"`
}

// OfferService issues and resolves customer offer links.
type OfferService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewOfferService(db *gorm.DB, logger *zap.Logger) *OfferService {
	return &OfferService{db: db, logger: logger}
}

// IssueOfferLink mints a fresh opaque token for a lead and moves it into
// the offer stage. Re-issuing replaces the previous token.
func (s *OfferService) IssueOfferLink(ctx context.Context, leadID uint) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).First(&lead, leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	if lead.IsConverted() {
		return nil, ErrAlreadyConverted
	}

	now := time.Now().UTC()
	lead.OfferToken = uuid.NewString()
	lead.OfferIssuedAt = &now
	lead.Status = models.LeadStatusOffer

	if err := s.db.WithContext(ctx).Save(&lead).Error; err != nil {
		return nil, err
	}

	s.logger.Info("Offer link issued",
		zap.Uint("lead_id", lead.ID),
		zap.String("external_id", lead.ExternalID),
	)

	return &lead, nil
}

// FetchOffer resolves an offer token to its lead, with line items in
// category display order, and all group siblings with their own items.
func (s *OfferService) FetchOffer(ctx context.Context, token string) (*OfferView, error) {
	var lead models.Lead
	err := s.db.WithContext(ctx).
		Preload("Items.Variant.Article").
		Preload("Location").
		First(&lead, "offer_token = ?", token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	sortItemsForDisplay(lead.Items)

	view := &OfferView{Lead: &lead}

	if lead.GroupID != "" {
		var siblings []models.Lead
		err := s.db.WithContext(ctx).
			Preload("Items.Variant.Article").
			Preload("Location").
			Where("group_id = ? AND id <> ?", lead.GroupID, lead.ID).
			Order("event_date ASC, event_start ASC, id ASC").
			Find(&siblings).Error
		if err != nil {
			return nil, err
		}

		for i := range siblings {
			sortItemsForDisplay(siblings[i].Items)
		}
		view.Siblings = siblings
	}

	return view, nil
}

// sortItemsForDisplay orders line items by category precedence (photo boxes
// first, services last), breaking ties by article name.
func sortItemsForDisplay(items []models.LeadItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri := models.CategoryRank(items[i].Variant.Article.Category)
		rj := models.CategoryRank(items[j].Variant.Article.Category)
		if ri != rj {
			return ri < rj
		}
		return items[i].Variant.Article.Name < items[j].Variant.Article.Name
	})
}

// SortBookingItemsForDisplay applies the same category precedence to
// booking line items shown in the customer order portal.
func SortBookingItemsForDisplay(items []models.BookingItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri := models.CategoryRank(items[i].Variant.Article.Category)
		rj := models.CategoryRank(items[j].Variant.Article.Category)
		if ri != rj {
			return ri < rj
		}
		return items[i].Variant.Article.Name < items[j].Variant.Article.Name
	})
}
