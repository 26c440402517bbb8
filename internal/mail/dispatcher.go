package mail

import (
	"context"
	"strings"

	"fotobox-crm/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TemplateFailure records one binding the dispatcher could not deliver.
type TemplateFailure struct {
	TemplateKey string `json:"template_key"`
	Reason      string `json:"reason"`
}

// DispatchReport summarizes one dispatch run over all bindings of an event.
type DispatchReport struct {
	EventKey  string            `json:"event_key"`
	Attempted int               `json:"attempted"`
	Failed    []TemplateFailure `json:"failed,omitempty"`
}

// Ok reports whether every attempted binding was delivered.
func (r *DispatchReport) Ok() bool {
	return len(r.Failed) == 0
}

// Dispatcher resolves the templates bound to an event, renders them with
// the supplied data and hands them to the sender. A failing binding never
// prevents the remaining bindings from being attempted.
type Dispatcher struct {
	db     *gorm.DB
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(db *gorm.DB, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{db: db, sender: sender, logger: logger}
}

// Dispatch sends every enabled template bound to eventKey. The recipient is
// taken from the rendered template recipient field, falling back to
// data["email"] when the template does not specify one.
func (d *Dispatcher) Dispatch(ctx context.Context, eventKey string, data map[string]string) *DispatchReport {
	report := &DispatchReport{EventKey: eventKey}

	var bindings []models.MailEvent
	err := d.db.WithContext(ctx).
		Where("event_key = ? AND enabled = ?", eventKey, true).
		Order("id ASC").
		Find(&bindings).Error
	if err != nil {
		d.logger.Error("Failed to load mail event bindings",
			zap.String("event_key", eventKey),
			zap.Error(err),
		)
		report.Failed = append(report.Failed, TemplateFailure{
			TemplateKey: "*",
			Reason:      "failed to load event bindings: " + err.Error(),
		})
		return report
	}

	if len(bindings) == 0 {
		d.logger.Debug("No mail templates bound to event", zap.String("event_key", eventKey))
		return report
	}

	for _, binding := range bindings {
		report.Attempted++

		if err := d.dispatchOne(ctx, binding, data); err != nil {
			d.logger.Error("Mail dispatch failed for template",
				zap.String("event_key", eventKey),
				zap.String("template_key", binding.TemplateKey),
				zap.Error(err),
			)
			report.Failed = append(report.Failed, TemplateFailure{
				TemplateKey: binding.TemplateKey,
				Reason:      err.Error(),
			})
			continue
		}

		d.logger.Info("Mail dispatched",
			zap.String("event_key", eventKey),
			zap.String("template_key", binding.TemplateKey),
		)
	}

	return report
}

func (d *Dispatcher) dispatchOne(ctx context.Context, binding models.MailEvent, data map[string]string) error {
	var tpl models.MailTemplate
	err := d.db.WithContext(ctx).First(&tpl, "key = ?", binding.TemplateKey).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return &templateError{key: binding.TemplateKey, msg: "template not found"}
		}
		return err
	}

	recipient := strings.TrimSpace(Render(tpl.Recipient, data))
	if recipient == "" {
		recipient = strings.TrimSpace(data["email"])
	}
	if recipient == "" {
		return &templateError{key: tpl.Key, msg: "no recipient resolved"}
	}

	msg := &Message{
		To:      splitAddresses(recipient),
		CC:      splitAddresses(Render(tpl.CC, data)),
		BCC:     splitAddresses(Render(tpl.BCC, data)),
		ReplyTo: strings.TrimSpace(Render(tpl.ReplyTo, data)),
		Subject: Render(tpl.Subject, data),
		HTML:    Render(tpl.Content, data),
	}

	return d.sender.Send(msg)
}

type templateError struct {
	key string
	msg string
}

func (e *templateError) Error() string {
	return "template " + e.key + ": " + e.msg
}

func splitAddresses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	addresses := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := strings.TrimSpace(p); addr != "" {
			addresses = append(addresses, addr)
		}
	}
	return addresses
}
