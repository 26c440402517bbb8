package models

import (
	"time"
)

type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "neu"
	LeadStatusOffer     LeadStatus = "angebot"
	LeadStatusConfirmed LeadStatus = "bestaetigt"
	LeadStatusCompleted LeadStatus = "abgeschlossen"
	LeadStatusCancelled LeadStatus = "storniert"
)

type CustomerType string

const (
	CustomerTypePrivate  CustomerType = "privat"
	CustomerTypeBusiness CustomerType = "firma"
)

// Lead represents an inbound booking inquiry before it is converted
// into a confirmed booking.
type Lead struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ExternalID string `json:"external_id" gorm:"uniqueIndex;not null"`
	GroupID    string `json:"group_id" gorm:"index"`

	// Contact
	FirstName    string       `json:"vorname" gorm:"not null"`
	LastName     string       `json:"nachname"`
	Email        string       `json:"email" gorm:"index"`
	Phone        string       `json:"telefon"`
	CustomerType CustomerType `json:"kundentyp" gorm:"default:'privat'"`
	CompanyName  string       `json:"firmenname"`

	// Event details
	EventDate  string `json:"event_datum"`
	EventStart string `json:"event_startzeit"`
	EventEnd   string `json:"event_endzeit"`
	EventVenue string `json:"event_ort"`
	LocationID *uint  `json:"location_id" gorm:"index"`
	GuestCount int    `json:"gaesteanzahl"`

	// Intake questionnaire (stored verbatim from the webhook payload)
	ContactPreference string `json:"kontaktwunsch"`
	ImportantRaw      string `json:"wichtig_raw" gorm:"type:text"`
	ExtrasRaw         string `json:"extras_raw" gorm:"type:text"`
	PriceQuestionsRaw string `json:"preisfragen_raw" gorm:"type:text"`
	OccasionRaw       string `json:"anlass_raw" gorm:"type:text"`
	ExperienceRaw     string `json:"erfahrung_raw" gorm:"type:text"`
	PriceTypeRaw      string `json:"preistyp_raw" gorm:"type:text"`
	GoalRaw           string `json:"ziel_raw" gorm:"type:text"`
	SourceRaw         string `json:"quelle_raw" gorm:"type:text"`
	CustomerFreeText  string `json:"freitext_kunde_raw" gorm:"type:text"`
	InternalComment   string `json:"intern_kommentar" gorm:"type:text"`

	// AI pre-qualification (filled by the intake pipeline)
	AiType      string `json:"ai_typ"`
	AiComment   string `json:"ai_kommentar" gorm:"type:text"`
	AiScoreJSON string `json:"ai_score_json" gorm:"type:text"`

	// Offer lifecycle
	Status           LeadStatus `json:"status" gorm:"not null;default:'neu'"`
	OfferToken       string     `json:"angebot_token" gorm:"index"`
	OfferIssuedAt    *time.Time `json:"angebot_erstellt_am"`
	OfferConfirmed   bool       `json:"angebot_bestaetigt" gorm:"not null;default:false"`
	OfferConfirmedAt *time.Time `json:"angebot_bestaetigt_am"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`

	// Relationships
	Location *Location  `json:"location,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	Items    []LeadItem `json:"artikel,omitempty" gorm:"foreignKey:LeadID"`
}

// LeadItem is one priced catalog item attached to a lead.
type LeadItem struct {
	ID               uint    `json:"id" gorm:"primaryKey"`
	LeadID           uint    `json:"lead_id" gorm:"not null;index"`
	ArticleVariantID uint    `json:"artikel_variante_id" gorm:"not null;index"`
	Quantity         int     `json:"anzahl" gorm:"not null;default:1"`
	UnitPrice        float64 `json:"einzelpreis" gorm:"not null;default:0"`
	Note             string  `json:"bemerkung" gorm:"type:text"`

	// Relationships
	Variant ArticleVariant `json:"variante,omitempty" gorm:"foreignKey:ArticleVariantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// FullName returns the contact's full name
func (l *Lead) FullName() string {
	if l.LastName == "" {
		return l.FirstName
	}
	return l.FirstName + " " + l.LastName
}

// IsConverted reports whether the lead has already been turned into a booking.
// Once true the lead must never be converted again.
func (l *Lead) IsConverted() bool {
	return l.OfferConfirmed
}

// IsOpen reports whether the lead is still waiting for a confirmation
func (l *Lead) IsOpen() bool {
	return !l.OfferConfirmed && l.Status != LeadStatusCancelled
}

// CanTransitionTo checks if the lead can transition to the specified status
func (l *Lead) CanTransitionTo(newStatus LeadStatus) bool {
	allowedTransitions := map[LeadStatus][]LeadStatus{
		LeadStatusNew: {
			LeadStatusOffer,
			LeadStatusCancelled,
		},
		LeadStatusOffer: {
			LeadStatusConfirmed,
			LeadStatusCancelled,
			LeadStatusOffer, // re-issuing a link keeps the status
		},
		LeadStatusConfirmed: {
			LeadStatusCompleted,
		},
		LeadStatusCompleted: {},
		LeadStatusCancelled: {
			LeadStatusNew,
		},
	}

	allowed, exists := allowedTransitions[l.Status]
	if !exists {
		return false
	}

	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}

	return false
}
