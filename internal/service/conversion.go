package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fotobox-crm/config"
	"fotobox-crm/internal/mail"
	"fotobox-crm/internal/models"
	"fotobox-crm/pkg/ids"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ContactInput carries the confirmed contact data supplied by the customer
// during offer confirmation.
type ContactInput struct {
	FirstName    string              `json:"vorname" binding:"required"`
	LastName     string              `json:"nachname"`
	Email        string              `json:"email" binding:"required,email"`
	Phone        string              `json:"telefon"`
	CustomerType models.CustomerType `json:"kundentyp"`
	CompanyName  string              `json:"firmenname"`
}

// AddressInput carries the venue/shipping address plus the billing address.
// When SameAsBilling is set the primary address doubles as billing address
// and the Billing* fields are ignored.
type AddressInput struct {
	Street     string `json:"strasse"`
	PostalCode string `json:"plz"`
	City       string `json:"ort"`

	SameAsBilling     bool   `json:"rechnungsadresse_identisch"`
	BillingStreet     string `json:"rechnungs_strasse"`
	BillingPostalCode string `json:"rechnungs_plz"`
	BillingCity       string `json:"rechnungs_ort"`
}

// resolve returns the effective billing address for the chosen shape.
func (a *AddressInput) resolve() (street, postalCode, city string, err error) {
	if a.SameAsBilling {
		return a.Street, a.PostalCode, a.City, nil
	}

	if strings.TrimSpace(a.BillingStreet) == "" {
		return "", "", "", newValidationError("rechnungs_strasse", "required when billing address differs")
	}
	if strings.TrimSpace(a.BillingPostalCode) == "" {
		return "", "", "", newValidationError("rechnungs_plz", "required when billing address differs")
	}
	if strings.TrimSpace(a.BillingCity) == "" {
		return "", "", "", newValidationError("rechnungs_ort", "required when billing address differs")
	}

	return a.BillingStreet, a.BillingPostalCode, a.BillingCity, nil
}

// GroupOutcome describes the result of confirming one lead of a group.
type GroupOutcome struct {
	LeadID        uint   `json:"lead_id"`
	BookingID     uint   `json:"buchung_id"`
	BookingNumber string `json:"buchungsnummer"`
}

// GroupFailure describes one lead of a group that could not be converted.
type GroupFailure struct {
	LeadID uint   `json:"lead_id"`
	Reason string `json:"grund"`
}

// GroupResult collects per-lead outcomes of a group confirmation.
type GroupResult struct {
	GroupID          string         `json:"group_id"`
	Converted        []GroupOutcome `json:"bestaetigt"`
	AlreadyConfirmed []uint         `json:"bereits_bestaetigt"`
	Failed           []GroupFailure `json:"fehlgeschlagen"`
}

// ConversionService turns confirmed offers into bookings.
type ConversionService struct {
	db         *gorm.DB
	dispatcher *mail.Dispatcher
	cfg        *config.Config
	logger     *zap.Logger
}

func NewConversionService(db *gorm.DB, dispatcher *mail.Dispatcher, cfg *config.Config, logger *zap.Logger) *ConversionService {
	return &ConversionService{
		db:         db,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// ConvertLeadToBooking converts one lead into a booking. The confirmation
// guard, customer creation, booking snapshot, line-item copy and lead flip
// all happen in a single transaction; the confirmation mail is dispatched
// after commit and never rolls the booking back.
func (s *ConversionService) ConvertLeadToBooking(ctx context.Context, leadID uint, contact ContactInput, address AddressInput) (*models.Booking, error) {
	if strings.TrimSpace(contact.FirstName) == "" {
		return nil, newValidationError("vorname", "required")
	}
	if strings.TrimSpace(contact.Email) == "" {
		return nil, newValidationError("email", "required")
	}

	billingStreet, billingPostalCode, billingCity, err := address.resolve()
	if err != nil {
		return nil, err
	}

	var bookingID uint

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lead models.Lead
		if err := tx.First(&lead, leadID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrLeadNotFound
			}
			return err
		}

		if lead.IsConverted() {
			return ErrAlreadyConverted
		}

		var items []models.LeadItem
		if err := tx.Where("lead_id = ?", lead.ID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}

		// Denormalize the venue location onto the booking snapshot
		var location *models.Location
		if lead.LocationID != nil {
			var loc models.Location
			if err := tx.First(&loc, *lead.LocationID).Error; err != nil {
				if err != gorm.ErrRecordNotFound {
					return err
				}
			} else {
				location = &loc
			}
		}

		customerType := contact.CustomerType
		if customerType == "" {
			customerType = lead.CustomerType
		}

		customer := models.Customer{
			FirstName:         contact.FirstName,
			LastName:          contact.LastName,
			Email:             contact.Email,
			Phone:             contact.Phone,
			CustomerType:      customerType,
			CompanyName:       contact.CompanyName,
			Street:            address.Street,
			PostalCode:        address.PostalCode,
			City:              address.City,
			BillingStreet:     billingStreet,
			BillingPostalCode: billingPostalCode,
			BillingCity:       billingCity,
		}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}

		booking := models.Booking{
			BookingNumber:       ids.NewBookingNumber(),
			LeadID:              lead.ID,
			CustomerID:          customer.ID,
			Status:              models.BookingStatusConfirmed,
			CustomerFirstName:   contact.FirstName,
			CustomerLastName:    contact.LastName,
			CustomerCompany:     contact.CompanyName,
			CustomerEmail:       contact.Email,
			CustomerPhone:       contact.Phone,
			CustomerType:        customerType,
			EventDate:           lead.EventDate,
			EventStart:          lead.EventStart,
			EventEnd:            lead.EventEnd,
			EventVenue:          lead.EventVenue,
			BillingName:         strings.TrimSpace(contact.FirstName + " " + contact.LastName),
			BillingStreet:       billingStreet,
			BillingPostalCode:   billingPostalCode,
			BillingCity:         billingCity,
			CustomerAccessToken: uuid.NewString(),
		}

		if location != nil {
			booking.EventLocationName = location.Name
			booking.EventStreet = location.Street
			booking.EventPostalCode = location.PostalCode
			if booking.EventVenue == "" {
				booking.EventVenue = location.City
			}
		}

		if err := tx.Create(&booking).Error; err != nil {
			return err
		}

		for _, item := range items {
			bookingItem := models.BookingItem{
				BookingID:        booking.ID,
				ArticleVariantID: item.ArticleVariantID,
				Quantity:         item.Quantity,
				UnitPrice:        item.UnitPrice,
				Note:             item.Note,
			}
			if err := tx.Create(&bookingItem).Error; err != nil {
				return err
			}
		}

		// Compare-and-set on the guard flag: a racing confirmation that
		// slipped past the read above loses here and rolls back.
		now := time.Now().UTC()
		result := tx.Model(&models.Lead{}).
			Where("id = ? AND offer_confirmed = ?", lead.ID, false).
			Updates(map[string]interface{}{
				"status":             models.LeadStatusConfirmed,
				"offer_confirmed":    true,
				"offer_confirmed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyConverted
		}

		bookingID = booking.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Reload so the notification reflects exactly what was persisted
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Items.Variant.Article").First(&booking, bookingID).Error; err != nil {
		return nil, err
	}

	s.logger.Info("Lead converted to booking",
		zap.Uint("lead_id", leadID),
		zap.Uint("booking_id", booking.ID),
		zap.String("booking_number", booking.BookingNumber),
	)

	report := s.dispatcher.Dispatch(ctx, models.EventOfferConfirmed, s.buildMailData(&booking))
	if !report.Ok() {
		// Best effort: the booking is committed, a failed mail never undoes it
		s.logger.Warn("Confirmation mail dispatch incomplete",
			zap.Uint("booking_id", booking.ID),
			zap.Int("attempted", report.Attempted),
			zap.Int("failed", len(report.Failed)),
		)
	}

	return &booking, nil
}

// ConfirmGroup confirms several leads sharing one offer token. When leadIDs
// is empty every open lead of the group is confirmed; otherwise only the
// given subset, validated to belong to the group. Leads run sequentially so
// per-lead failures stay attributable.
func (s *ConversionService) ConfirmGroup(ctx context.Context, token string, leadIDs []uint, contact ContactInput, address AddressInput) (*GroupResult, error) {
	var anchor models.Lead
	err := s.db.WithContext(ctx).First(&anchor, "offer_token = ?", token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	if anchor.GroupID == "" {
		return nil, newValidationError("group_id", "lead does not belong to a group")
	}

	var groupLeads []models.Lead
	err = s.db.WithContext(ctx).
		Where("group_id = ?", anchor.GroupID).
		Order("event_date ASC, event_start ASC, id ASC").
		Find(&groupLeads).Error
	if err != nil {
		return nil, err
	}

	inGroup := make(map[uint]*models.Lead, len(groupLeads))
	for i := range groupLeads {
		inGroup[groupLeads[i].ID] = &groupLeads[i]
	}

	var candidates []*models.Lead
	if len(leadIDs) > 0 {
		for _, id := range leadIDs {
			lead, ok := inGroup[id]
			if !ok {
				return nil, newValidationError("lead_ids", fmt.Sprintf("lead %d does not belong to group %s", id, anchor.GroupID))
			}
			candidates = append(candidates, lead)
		}
	} else {
		for i := range groupLeads {
			candidates = append(candidates, &groupLeads[i])
		}
	}

	result := &GroupResult{GroupID: anchor.GroupID}

	for _, lead := range candidates {
		if lead.IsConverted() {
			result.AlreadyConfirmed = append(result.AlreadyConfirmed, lead.ID)
			continue
		}

		booking, err := s.ConvertLeadToBooking(ctx, lead.ID, contact, address)
		if err != nil {
			if err == ErrAlreadyConverted {
				result.AlreadyConfirmed = append(result.AlreadyConfirmed, lead.ID)
				continue
			}
			result.Failed = append(result.Failed, GroupFailure{
				LeadID: lead.ID,
				Reason: err.Error(),
			})
			continue
		}

		result.Converted = append(result.Converted, GroupOutcome{
			LeadID:        lead.ID,
			BookingID:     booking.ID,
			BookingNumber: booking.BookingNumber,
		})
	}

	return result, nil
}

// buildMailData flattens the persisted booking into the placeholder record
// the confirmation templates are rendered with. Dates and prices arrive
// pre-formatted so the templates stay dumb.
func (s *ConversionService) buildMailData(booking *models.Booking) map[string]string {
	venue := booking.EventVenue
	if booking.EventLocationName != "" {
		venue = booking.EventLocationName
		if booking.EventVenue != "" {
			venue += ", " + booking.EventVenue
		}
	}

	var itemLines []string
	for _, item := range booking.Items {
		label := item.Variant.Article.Name
		if item.Variant.Name != "" {
			label += " – " + item.Variant.Name
		}
		itemLines = append(itemLines, fmt.Sprintf("%dx %s (%s)", item.Quantity, label, formatPrice(item.UnitPrice)))
	}

	return map[string]string{
		"vorname":         booking.CustomerFirstName,
		"nachname":        booking.CustomerLastName,
		"name":            booking.CustomerFullName(),
		"email":           booking.CustomerEmail,
		"telefon":         booking.CustomerPhone,
		"firmenname":      booking.CustomerCompany,
		"buchungsnummer":  booking.BookingNumber,
		"event_datum":     formatGermanDate(booking.EventDate),
		"event_startzeit": booking.EventStart,
		"event_endzeit":   booking.EventEnd,
		"event_ort":       venue,
		"artikel":         strings.Join(itemLines, "<br>"),
		"gesamtpreis":     formatPrice(booking.TotalPrice()),
		"agb_link":        s.cfg.Links.TermsURL,
		"dsgvo_link":      s.cfg.Links.PrivacyURL,
		"auftrag_link":    s.cfg.Links.FrontendBaseURL + "/auftrag/" + booking.CustomerAccessToken,
		"betreiber_email": s.cfg.SMTP.OperatorEmail,
	}
}

// formatGermanDate turns an ISO date (2006-01-02) into 02.01.2006.
// Values that do not parse pass through unchanged.
func formatGermanDate(isoDate string) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("02.01.2006")
}

func formatPrice(amount float64) string {
	return fmt.Sprintf("%.2f €", amount)
}
