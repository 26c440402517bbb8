package service

import (
	"context"
	"errors"
	"testing"

	"fotobox-crm/config"
	"fotobox-crm/internal/mail"
	"fotobox-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingSender struct {
	sent []*mail.Message
	err  error
}

func (r *recordingSender) Send(msg *mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func setupServiceDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.Location{},
		&models.Article{},
		&models.ArticleVariant{},
		&models.Lead{},
		&models.LeadItem{},
		&models.Customer{},
		&models.Booking{},
		&models.BookingItem{},
		&models.MailTemplate{},
		&models.MailEvent{},
	)
	require.NoError(t, err)

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		SMTP: config.SMTPConfig{
			OperatorEmail: "info@mrknips.de",
		},
		Links: config.LinksConfig{
			TermsURL:        "https://mrknips.de/agb",
			PrivacyURL:      "https://mrknips.de/datenschutz",
			FrontendBaseURL: "https://mrknips.de",
		},
	}
}

func newTestConversionService(t *testing.T, db *gorm.DB, sender mail.Sender) *ConversionService {
	dispatcher := mail.NewDispatcher(db, sender, zap.NewNop())
	return NewConversionService(db, dispatcher, testConfig(), zap.NewNop())
}

func seedConfirmationTemplate(t *testing.T, db *gorm.DB) {
	require.NoError(t, db.Create(&models.MailTemplate{
		Key:     "bestaetigung",
		Subject: "Buchung {{buchungsnummer}} am {{event_datum}}",
		Content: "<p>Hallo {{vorname}},</p><p>{{artikel}}</p><p>Gesamt: {{gesamtpreis}}</p>",
	}).Error)
	require.NoError(t, db.Create(&models.MailEvent{
		EventKey:    models.EventOfferConfirmed,
		TemplateKey: "bestaetigung",
		Enabled:     true,
	}).Error)
}

func createCatalogVariant(t *testing.T, db *gorm.DB, articleName string, category models.ArticleCategory, price float64) models.ArticleVariant {
	article := models.Article{Name: articleName, Category: category, Active: true}
	require.NoError(t, db.Create(&article).Error)

	variant := models.ArticleVariant{ArticleID: article.ID, Name: "Standard", BasePrice: price}
	require.NoError(t, db.Create(&variant).Error)

	return variant
}

func createOpenLead(t *testing.T, db *gorm.DB, externalID string) *models.Lead {
	lead := &models.Lead{
		ExternalID: externalID,
		FirstName:  "Max",
		LastName:   "Mustermann",
		Email:      "max@example.com",
		EventDate:  "2026-09-12",
		EventStart: "18:00",
		EventEnd:   "23:00",
		EventVenue: "Musterstadt",
		Status:     models.LeadStatusOffer,
	}
	require.NoError(t, db.Create(lead).Error)
	return lead
}

func defaultContact() ContactInput {
	return ContactInput{
		FirstName: "Max",
		LastName:  "Mustermann",
		Email:     "max@example.com",
		Phone:     "+49 151 1234567",
	}
}

func sameAddress() AddressInput {
	return AddressInput{
		Street:        "Musterweg 1",
		PostalCode:    "12345",
		City:          "Musterstadt",
		SameAsBilling: true,
	}
}

func TestConvertLeadToBooking_EndToEnd(t *testing.T) {
	db := setupServiceDB(t)
	sender := &recordingSender{}
	svc := newTestConversionService(t, db, sender)
	seedConfirmationTemplate(t, db)

	box := createCatalogVariant(t, db, "Fotobox Classic", models.CategoryPhotoBox, 299.00)
	props := createCatalogVariant(t, db, "Requisitenkoffer", models.CategoryAccessory, 0)

	lead := createOpenLead(t, db, "L-20260912-TEST")
	require.NoError(t, db.Create(&models.LeadItem{LeadID: lead.ID, ArticleVariantID: box.ID, Quantity: 1, UnitPrice: 299.00}).Error)
	require.NoError(t, db.Create(&models.LeadItem{LeadID: lead.ID, ArticleVariantID: props.ID, Quantity: 1, UnitPrice: 0}).Error)

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)
	require.NotNil(t, booking)

	// Booking references the lead and snapshots the event
	assert.Equal(t, lead.ID, booking.LeadID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, "2026-09-12", booking.EventDate)
	assert.Equal(t, "18:00", booking.EventStart)
	assert.NotEmpty(t, booking.BookingNumber)
	assert.NotEmpty(t, booking.CustomerAccessToken)

	// Two line items totaling 299.00
	require.Len(t, booking.Items, 2)
	assert.InDelta(t, 299.00, booking.TotalPrice(), 0.001)

	// Lead is flipped
	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, lead.ID).Error)
	assert.True(t, reloaded.OfferConfirmed)
	assert.NotNil(t, reloaded.OfferConfirmedAt)
	assert.Equal(t, models.LeadStatusConfirmed, reloaded.Status)

	// Exactly one dispatch for the confirmation event
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"max@example.com"}, sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Subject, booking.BookingNumber)
	assert.Contains(t, sender.sent[0].Subject, "12.09.2026")
	assert.Contains(t, sender.sent[0].HTML, "299.00 €")
}

func TestConvertLeadToBooking_NotFound(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	_, err := svc.ConvertLeadToBooking(context.Background(), 9999, defaultContact(), sameAddress())
	assert.ErrorIs(t, err, ErrLeadNotFound)
}

func TestConvertLeadToBooking_AlreadyConverted(t *testing.T) {
	db := setupServiceDB(t)
	sender := &recordingSender{}
	svc := newTestConversionService(t, db, sender)

	lead := createOpenLead(t, db, "L-20260912-DBL1")

	_, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)

	// Second confirmation must trip the guard and create nothing
	_, err = svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	var bookings int64
	require.NoError(t, db.Model(&models.Booking{}).Where("lead_id = ?", lead.ID).Count(&bookings).Error)
	assert.Equal(t, int64(1), bookings)

	var customers int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&customers).Error)
	assert.Equal(t, int64(1), customers)
}

func TestConvertLeadToBooking_RacingConfirmationRollsBack(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	lead := createOpenLead(t, db, "L-20260912-RACE")

	// Flip the guard flag after the initial read check but before the
	// compare-and-set update, the way a racing confirmation would.
	err := db.Callback().Create().After("gorm:create").Register("racing_confirmation", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.Customer); !ok {
			return
		}
		flip := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Lead{}).
			Where("id = ?", lead.ID).
			Update("offer_confirmed", true)
		if flip.Error != nil {
			tx.AddError(flip.Error)
		}
	})
	require.NoError(t, err)

	_, err = svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	assert.ErrorIs(t, err, ErrAlreadyConverted)

	// The losing transaction rolled back all of its writes
	var customers, bookings int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&customers).Error)
	assert.Equal(t, int64(0), customers)
	require.NoError(t, db.Model(&models.Booking{}).Count(&bookings).Error)
	assert.Equal(t, int64(0), bookings)
}

func TestConvertLeadToBooking_BillingSameAsPrimary(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	lead := createOpenLead(t, db, "L-20260912-ADR1")

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)

	var customer models.Customer
	require.NoError(t, db.First(&customer, booking.CustomerID).Error)
	assert.Equal(t, customer.Street, customer.BillingStreet)
	assert.Equal(t, customer.PostalCode, customer.BillingPostalCode)
	assert.Equal(t, customer.City, customer.BillingCity)
	assert.Equal(t, "Musterweg 1", booking.BillingStreet)
}

func TestConvertLeadToBooking_DistinctBillingAddress(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	lead := createOpenLead(t, db, "L-20260912-ADR2")

	address := AddressInput{
		Street:            "Musterweg 1",
		PostalCode:        "12345",
		City:              "Musterstadt",
		SameAsBilling:     false,
		BillingStreet:     "Firmenallee 99",
		BillingPostalCode: "54321",
		BillingCity:       "Beispielhausen",
	}

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), address)
	require.NoError(t, err)

	var customer models.Customer
	require.NoError(t, db.First(&customer, booking.CustomerID).Error)
	assert.Equal(t, "Musterweg 1", customer.Street)
	assert.Equal(t, "Firmenallee 99", customer.BillingStreet)
	assert.Equal(t, "54321", customer.BillingPostalCode)
	assert.Equal(t, "Beispielhausen", customer.BillingCity)
	assert.Equal(t, "Firmenallee 99", booking.BillingStreet)
}

func TestConvertLeadToBooking_MissingBillingFields(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	lead := createOpenLead(t, db, "L-20260912-ADR3")

	address := AddressInput{
		Street:        "Musterweg 1",
		PostalCode:    "12345",
		City:          "Musterstadt",
		SameAsBilling: false,
		BillingStreet: "Firmenallee 99",
		// plz and ort missing
	}

	_, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), address)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "rechnungs_plz", validationErr.Field)

	// Nothing was written
	var count int64
	require.NoError(t, db.Model(&models.Customer{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestConvertLeadToBooking_LocationDenormalized(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	location := models.Location{
		Name:       "Alte Scheune",
		Street:     "Dorfstraße 12",
		PostalCode: "12345",
		City:       "Musterstadt",
	}
	require.NoError(t, db.Create(&location).Error)

	lead := createOpenLead(t, db, "L-20260912-LOC1")
	require.NoError(t, db.Model(lead).Update("location_id", location.ID).Error)

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)

	assert.Equal(t, "Alte Scheune", booking.EventLocationName)
	assert.Equal(t, "Dorfstraße 12", booking.EventStreet)
	assert.Equal(t, "12345", booking.EventPostalCode)
}

func TestConvertLeadToBooking_PriceSnapshotIsImmutable(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	variant := createCatalogVariant(t, db, "Fotobox Classic", models.CategoryPhotoBox, 299.00)
	lead := createOpenLead(t, db, "L-20260912-SNAP")
	require.NoError(t, db.Create(&models.LeadItem{LeadID: lead.ID, ArticleVariantID: variant.ID, Quantity: 1, UnitPrice: 299.00}).Error)

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)

	// Raise the catalog price after conversion
	require.NoError(t, db.Model(&models.ArticleVariant{}).Where("id = ?", variant.ID).Update("base_price", 399.00).Error)

	var item models.BookingItem
	require.NoError(t, db.First(&item, "booking_id = ?", booking.ID).Error)
	assert.InDelta(t, 299.00, item.UnitPrice, 0.001)
}

func TestConvertLeadToBooking_MailFailureDoesNotRollBack(t *testing.T) {
	db := setupServiceDB(t)
	sender := &recordingSender{err: errors.New("smtp down")}
	svc := newTestConversionService(t, db, sender)
	seedConfirmationTemplate(t, db)

	lead := createOpenLead(t, db, "L-20260912-SMTP")

	booking, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, defaultContact(), sameAddress())
	require.NoError(t, err)
	require.NotNil(t, booking)

	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, lead.ID).Error)
	assert.True(t, reloaded.OfferConfirmed)
}

func TestConvertLeadToBooking_ValidationBeforeWrite(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	lead := createOpenLead(t, db, "L-20260912-VAL1")

	contact := defaultContact()
	contact.Email = ""

	_, err := svc.ConvertLeadToBooking(context.Background(), lead.ID, contact, sameAddress())

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "email", validationErr.Field)
}

func TestConfirmGroup(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	groupID := "GL-20260912-GRP1"
	token := "group-token-1"

	leads := make([]*models.Lead, 3)
	for i, ext := range []string{"L-20260912-GRA1", "L-20260912-GRA2", "L-20260912-GRA3"} {
		lead := createOpenLead(t, db, ext)
		updates := map[string]interface{}{"group_id": groupID}
		if i == 0 {
			updates["offer_token"] = token
		}
		require.NoError(t, db.Model(lead).Updates(updates).Error)
		leads[i] = lead
	}

	// Third lead is already confirmed
	require.NoError(t, db.Model(leads[2]).Updates(map[string]interface{}{
		"offer_confirmed": true,
		"status":          models.LeadStatusConfirmed,
	}).Error)

	result, err := svc.ConfirmGroup(context.Background(), token, nil, defaultContact(), sameAddress())
	require.NoError(t, err)

	assert.Equal(t, groupID, result.GroupID)
	assert.Len(t, result.Converted, 2)
	assert.Equal(t, []uint{leads[2].ID}, result.AlreadyConfirmed)
	assert.Empty(t, result.Failed)

	var bookings int64
	require.NoError(t, db.Model(&models.Booking{}).Count(&bookings).Error)
	assert.Equal(t, int64(2), bookings)
}

func TestConfirmGroup_ExplicitSubset(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	groupID := "GL-20260912-GRP2"
	token := "group-token-2"

	first := createOpenLead(t, db, "L-20260912-GRB1")
	require.NoError(t, db.Model(first).Updates(map[string]interface{}{
		"group_id":    groupID,
		"offer_token": token,
	}).Error)

	second := createOpenLead(t, db, "L-20260912-GRB2")
	require.NoError(t, db.Model(second).Update("group_id", groupID).Error)

	result, err := svc.ConfirmGroup(context.Background(), token, []uint{first.ID}, defaultContact(), sameAddress())
	require.NoError(t, err)

	require.Len(t, result.Converted, 1)
	assert.Equal(t, first.ID, result.Converted[0].LeadID)

	// Second lead stays open
	var reloaded models.Lead
	require.NoError(t, db.First(&reloaded, second.ID).Error)
	assert.False(t, reloaded.OfferConfirmed)
}

func TestConfirmGroup_ForeignLeadRejected(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	member := createOpenLead(t, db, "L-20260912-GRC1")
	require.NoError(t, db.Model(member).Updates(map[string]interface{}{
		"group_id":    "GL-20260912-GRP3",
		"offer_token": "group-token-3",
	}).Error)

	outsider := createOpenLead(t, db, "L-20260912-GRC2")

	_, err := svc.ConfirmGroup(context.Background(), "group-token-3", []uint{outsider.ID}, defaultContact(), sameAddress())

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "lead_ids", validationErr.Field)
}

func TestConfirmGroup_UnknownToken(t *testing.T) {
	db := setupServiceDB(t)
	svc := newTestConversionService(t, db, &recordingSender{})

	_, err := svc.ConfirmGroup(context.Background(), "does-not-exist", nil, defaultContact(), sameAddress())
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
