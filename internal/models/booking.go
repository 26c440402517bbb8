package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "bestaetigt"
	BookingStatusCompleted BookingStatus = "abgeschlossen"
	BookingStatusCancelled BookingStatus = "storniert"
)

// Customer is created fresh on every lead conversion. Customer rows are
// append-only; there is no dedup or merge path.
type Customer struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	FirstName    string       `json:"vorname" gorm:"not null"`
	LastName     string       `json:"nachname"`
	Email        string       `json:"email" gorm:"index"`
	Phone        string       `json:"telefon"`
	CustomerType CustomerType `json:"kundentyp" gorm:"default:'privat'"`
	CompanyName  string       `json:"firmenname"`

	// Primary (venue/shipping) address
	Street     string `json:"anschrift_strasse"`
	PostalCode string `json:"anschrift_plz"`
	City       string `json:"anschrift_ort"`

	// Billing address; equals the primary address when the customer
	// ticked "same as billing" during confirmation
	BillingStreet     string `json:"rechnungsanschrift_strasse"`
	BillingPostalCode string `json:"rechnungsanschrift_plz"`
	BillingCity       string `json:"rechnungsanschrift_ort"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
}

// Booking is a confirmed, billable engagement created from exactly one
// converted lead. It owns a snapshot of the event details and denormalized
// customer and location fields, so later lead or catalog edits do not
// change what was confirmed.
type Booking struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	BookingNumber string        `json:"buchungsnummer" gorm:"uniqueIndex;not null"`
	LeadID        uint          `json:"lead_id" gorm:"not null;index"`
	CustomerID    uint          `json:"kunde_id" gorm:"not null;index"`
	Status        BookingStatus `json:"status" gorm:"not null;default:'bestaetigt'"`

	// Denormalized customer fields
	CustomerFirstName string       `json:"kunde_vorname"`
	CustomerLastName  string       `json:"kunde_nachname"`
	CustomerCompany   string       `json:"kunde_firma"`
	CustomerEmail     string       `json:"kunde_email"`
	CustomerPhone     string       `json:"kunde_telefon"`
	CustomerType      CustomerType `json:"kundentyp"`

	// Event snapshot
	EventDate  string `json:"event_datum"`
	EventStart string `json:"event_startzeit"`
	EventEnd   string `json:"event_endzeit"`
	EventVenue string `json:"event_anschrift_ort"`

	// Denormalized location (resolved from the lead's location, if any)
	EventLocationName string `json:"event_location"`
	EventStreet       string `json:"event_anschrift_strasse"`
	EventPostalCode   string `json:"event_anschrift_plz"`

	// Invoice address (customer-editable through the order portal)
	BillingName       string     `json:"rechnungs_name"`
	BillingStreet     string     `json:"rechnungs_strasse"`
	BillingPostalCode string     `json:"rechnungs_plz"`
	BillingCity       string     `json:"rechnungs_ort"`
	BillingCostCenter string     `json:"rechnungs_kostenstelle"`
	BillingChangedAt  *time.Time `json:"rechnungsadresse_geaendert_am"`

	// Opaque token granting the customer access to their order portal
	CustomerAccessToken string `json:"token_kundenzugang" gorm:"uniqueIndex"`

	// Production state
	PhotosReady       bool   `json:"fotos_bereit" gorm:"not null;default:false"`
	LayoutDone        bool   `json:"layout_fertig" gorm:"not null;default:false"`
	LayoutQRDone      bool   `json:"layout_qr_fertig" gorm:"not null;default:false"`
	GalleryActive     bool   `json:"galerie_aktiv" gorm:"not null;default:false"`
	InvoiceDone       bool   `json:"rechnung_fertig" gorm:"not null;default:false"`
	InvoicePaid       bool   `json:"rechnung_bezahlt" gorm:"not null;default:false"`
	PhotoDownloadLink string `json:"fotodownload_link"`

	// Photo layout chosen by the customer
	LayoutStyle      string     `json:"fotolayout_style"`
	LayoutText       string     `json:"fotolayout_text"`
	LayoutDate       string     `json:"fotolayout_datum"`
	LayoutColor      string     `json:"fotolayout_farbe"`
	LayoutLink       string     `json:"fotolayout_link"`
	LayoutApproved   bool       `json:"fotolayout_kundenfreigabe" gorm:"not null;default:false"`
	LayoutApprovedAt *time.Time `json:"fotolayout_freigabe_am"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`

	// Relationships
	Customer Customer      `json:"kunde,omitempty" gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Lead     Lead          `json:"lead,omitempty" gorm:"foreignKey:LeadID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Items    []BookingItem `json:"artikel,omitempty" gorm:"foreignKey:BookingID"`
}

// BookingItem is a line item copied from a lead item at conversion time.
// The unit price is a snapshot; later catalog price changes never touch it.
type BookingItem struct {
	ID               uint    `json:"id" gorm:"primaryKey"`
	BookingID        uint    `json:"buchung_id" gorm:"not null;index"`
	ArticleVariantID uint    `json:"artikel_variante_id" gorm:"not null;index"`
	Quantity         int     `json:"anzahl" gorm:"not null;default:1"`
	UnitPrice        float64 `json:"einzelpreis" gorm:"not null;default:0"`
	Note             string  `json:"bemerkung" gorm:"type:text"`

	// Relationships
	Variant ArticleVariant `json:"variante,omitempty" gorm:"foreignKey:ArticleVariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CustomerFullName returns the denormalized customer name
func (b *Booking) CustomerFullName() string {
	if b.CustomerLastName == "" {
		return b.CustomerFirstName
	}
	return b.CustomerFirstName + " " + b.CustomerLastName
}

// TotalPrice sums unit price times quantity over the loaded line items
func (b *Booking) TotalPrice() float64 {
	var total float64
	for _, item := range b.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}
