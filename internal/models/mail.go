package models

import "time"

// Event keys that mail templates can be bound to
const (
	EventOfferConfirmed = "angebot.bestaetigt"
)

// MailTemplate holds the subject/body/recipient templates for one outbound
// mail. All fields support {{placeholder}} substitution.
type MailTemplate struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Key       string `json:"key" gorm:"uniqueIndex;not null"`
	Subject   string `json:"subject" gorm:"not null"`
	Content   string `json:"content" gorm:"type:text;not null"`
	Recipient string `json:"recipient"`
	CC        string `json:"cc"`
	BCC       string `json:"bcc"`
	ReplyTo   string `json:"reply_to"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`
}

// MailEvent binds a template to a lifecycle event. Disabled bindings are
// skipped by the dispatcher.
type MailEvent struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	EventKey    string `json:"event_key" gorm:"not null;index"`
	TemplateKey string `json:"template_key" gorm:"not null;index"`
	Enabled     bool   `json:"enabled" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"erstellt_am" gorm:"not null"`
	UpdatedAt time.Time `json:"aktualisiert_am" gorm:"not null"`
}
