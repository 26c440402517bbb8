package models

import "time"

// Location is a named event venue that can be attached to leads and
// denormalized onto bookings at conversion time.
type Location struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	Name          string `json:"name" gorm:"uniqueIndex;not null"`
	Street        string `json:"strasse"`
	PostalCode    string `json:"plz"`
	City          string `json:"ort"`
	ContactPerson string `json:"ansprechpartner"`
	Phone         string `json:"telefon"`
	Note          string `json:"hinweis" gorm:"type:text"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`
}
