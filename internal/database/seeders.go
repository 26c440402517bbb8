package database

import (
	"fmt"
	"log"

	"fotobox-crm/config"
	"fotobox-crm/internal/models"

	"gorm.io/gorm"
)

// SeedData creates initial data for development: a small article catalog,
// a demo location and the default confirmation mail templates.
func SeedData(db *gorm.DB, cfg *config.Config) error {
	if !cfg.Dev.SeedData {
		return nil
	}

	log.Println("Seeding development data...")

	// Skip if the catalog was already seeded
	var count int64
	if err := db.Model(&models.Article{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check existing catalog: %w", err)
	}
	if count > 0 {
		log.Println("Catalog already seeded, skipping seed data")
		return nil
	}

	if err := seedCatalog(db); err != nil {
		return err
	}
	if err := seedLocations(db); err != nil {
		return err
	}
	if err := seedMailTemplates(db); err != nil {
		return err
	}

	log.Println("Seed data created successfully")
	return nil
}

func seedCatalog(db *gorm.DB) error {
	catalog := []models.Article{
		{
			Name:     "Fotobox Classic",
			Category: models.CategoryPhotoBox,
			Active:   true,
			Variants: []models.ArticleVariant{
				{Name: "4h Paket", BasePrice: 299.00},
				{Name: "8h Paket", BasePrice: 399.00},
			},
		},
		{
			Name:     "Fotobox Deluxe",
			Category: models.CategoryPhotoBox,
			Active:   true,
			Variants: []models.ArticleVariant{
				{Name: "Ganztages-Paket", BasePrice: 499.00},
			},
		},
		{
			Name:     "Hintergrund Blumenwand",
			Category: models.CategoryBackdrop,
			Active:   true,
			Variants: []models.ArticleVariant{
				{Name: "Standard", BasePrice: 79.00},
			},
		},
		{
			Name:     "Requisitenkoffer",
			Category: models.CategoryAccessory,
			Active:   true,
			Variants: []models.ArticleVariant{
				{Name: "Standard", BasePrice: 0},
			},
		},
		{
			Name:     "Auf- und Abbau",
			Category: models.CategoryService,
			Active:   true,
			Variants: []models.ArticleVariant{
				{Name: "Innerhalb 50 km", BasePrice: 49.00},
			},
		},
	}

	for i := range catalog {
		if err := db.Create(&catalog[i]).Error; err != nil {
			return fmt.Errorf("failed to seed article %q: %w", catalog[i].Name, err)
		}
	}

	return nil
}

func seedLocations(db *gorm.DB) error {
	location := &models.Location{
		Name:          "Alte Scheune Musterstadt",
		Street:        "Dorfstraße 12",
		PostalCode:    "12345",
		City:          "Musterstadt",
		ContactPerson: "Frau Beispiel",
		Phone:         "+49 151 2345678",
		Note:          "Anlieferung über den Hof, Strom am Eingang",
	}

	if err := db.Create(location).Error; err != nil {
		return fmt.Errorf("failed to seed location: %w", err)
	}

	return nil
}

func seedMailTemplates(db *gorm.DB) error {
	templates := []models.MailTemplate{
		{
			Key:     "angebot_bestaetigt_kunde",
			Subject: "Buchungsbestätigung – Fotobox für den {{event_datum}}",
			Content: `<p>Hallo {{vorname}} {{nachname}},</p>
<p>vielen Dank für deine Buchung! Hier die Details:</p>
<p><strong>Datum:</strong> {{event_datum}}<br>
<strong>Zeit:</strong> {{event_startzeit}} – {{event_endzeit}} Uhr<br>
<strong>Ort:</strong> {{event_ort}}</p>
<p>{{artikel}}</p>
<p><strong>Gesamtpreis:</strong> {{gesamtpreis}}</p>
<p>Es gelten unsere <a href="{{agb_link}}">AGB</a> und unsere <a href="{{dsgvo_link}}">Datenschutzerklärung</a>.</p>
<p>Dein Mr. Knips Team</p>`,
		},
		{
			Key:       "angebot_bestaetigt_betreiber",
			Subject:   "Neue Buchung: {{name}} am {{event_datum}}",
			Recipient: "{{betreiber_email}}",
			Content: `<p>Neue Buchung eingegangen:</p>
<p>{{name}} ({{email}}, {{telefon}})<br>
{{event_datum}} {{event_startzeit}}–{{event_endzeit}}, {{event_ort}}</p>
<p>{{artikel}}</p>
<p>Gesamt: {{gesamtpreis}}</p>`,
		},
	}

	for i := range templates {
		if err := db.Create(&templates[i]).Error; err != nil {
			return fmt.Errorf("failed to seed mail template %q: %w", templates[i].Key, err)
		}
	}

	bindings := []models.MailEvent{
		{EventKey: models.EventOfferConfirmed, TemplateKey: "angebot_bestaetigt_kunde", Enabled: true},
		{EventKey: models.EventOfferConfirmed, TemplateKey: "angebot_bestaetigt_betreiber", Enabled: true},
	}

	for i := range bindings {
		if err := db.Create(&bindings[i]).Error; err != nil {
			return fmt.Errorf("failed to seed mail event binding: %w", err)
		}
	}

	return nil
}
