package mail

import (
	"context"
	"errors"
	"testing"

	"fotobox-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSender struct {
	sent    []*Message
	failFor map[string]error
}

func (f *fakeSender) Send(msg *Message) error {
	if err, ok := f.failFor[msg.Subject]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func setupDispatcherDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.MailTemplate{}, &models.MailEvent{})
	require.NoError(t, err)

	return db
}

func createBinding(t *testing.T, db *gorm.DB, tpl models.MailTemplate, enabled bool) {
	require.NoError(t, db.Create(&tpl).Error)
	require.NoError(t, db.Create(&models.MailEvent{
		EventKey:    models.EventOfferConfirmed,
		TemplateKey: tpl.Key,
		Enabled:     enabled,
	}).Error)
}

func TestDispatch_SingleTemplate(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:     "kunde",
		Subject: "Buchung für {{vorname}}",
		Content: "<p>Hallo {{vorname}}</p>",
	}, true)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"vorname": "Max",
		"email":   "max@example.com",
	})

	assert.True(t, report.Ok())
	assert.Equal(t, 1, report.Attempted)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"max@example.com"}, sender.sent[0].To)
	assert.Equal(t, "Buchung für Max", sender.sent[0].Subject)
	assert.Equal(t, "<p>Hallo Max</p>", sender.sent[0].HTML)
}

func TestDispatch_RecipientFromTemplate(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:       "betreiber",
		Subject:   "Neue Buchung",
		Content:   "<p>Details</p>",
		Recipient: "{{betreiber_email}}",
	}, true)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"email":           "max@example.com",
		"betreiber_email": "info@mrknips.de",
	})

	assert.True(t, report.Ok())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"info@mrknips.de"}, sender.sent[0].To)
}

func TestDispatch_DisabledBindingSkipped(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:     "aktiv",
		Subject: "Aktiv",
		Content: "a",
	}, true)
	createBinding(t, db, models.MailTemplate{
		Key:     "deaktiviert",
		Subject: "Deaktiviert",
		Content: "b",
	}, false)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"email": "max@example.com",
	})

	assert.True(t, report.Ok())
	assert.Equal(t, 1, report.Attempted)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Aktiv", sender.sent[0].Subject)
}

func TestDispatch_FailureIsolation(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{
		failFor: map[string]error{"Kaputt": errors.New("smtp down")},
	}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:     "kaputt",
		Subject: "Kaputt",
		Content: "a",
	}, true)
	createBinding(t, db, models.MailTemplate{
		Key:     "heil",
		Subject: "Heil",
		Content: "b",
	}, true)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"email": "max@example.com",
	})

	// First binding fails, second still goes out
	assert.False(t, report.Ok())
	assert.Equal(t, 2, report.Attempted)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "kaputt", report.Failed[0].TemplateKey)
	assert.Contains(t, report.Failed[0].Reason, "smtp down")
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Heil", sender.sent[0].Subject)
}

func TestDispatch_MissingTemplate(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	require.NoError(t, db.Create(&models.MailEvent{
		EventKey:    models.EventOfferConfirmed,
		TemplateKey: "fehlt",
		Enabled:     true,
	}).Error)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"email": "max@example.com",
	})

	assert.False(t, report.Ok())
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "fehlt", report.Failed[0].TemplateKey)
	assert.Contains(t, report.Failed[0].Reason, "template not found")
	assert.Empty(t, sender.sent)
}

func TestDispatch_NoRecipient(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:     "ohne",
		Subject: "Ohne Empfänger",
		Content: "a",
	}, true)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{})

	assert.False(t, report.Ok())
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Reason, "no recipient resolved")
}

func TestDispatch_UnknownEvent(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	report := d.Dispatch(context.Background(), "gibt.es.nicht", map[string]string{
		"email": "max@example.com",
	})

	assert.True(t, report.Ok())
	assert.Equal(t, 0, report.Attempted)
	assert.Empty(t, sender.sent)
}

func TestDispatch_CCAndReplyTo(t *testing.T) {
	db := setupDispatcherDB(t)
	sender := &fakeSender{}
	d := NewDispatcher(db, sender, zap.NewNop())

	createBinding(t, db, models.MailTemplate{
		Key:     "cc",
		Subject: "Mit CC",
		Content: "a",
		CC:      "buero@mrknips.de, {{betreiber_email}}",
		ReplyTo: "antwort@mrknips.de",
	}, true)

	report := d.Dispatch(context.Background(), models.EventOfferConfirmed, map[string]string{
		"email":           "max@example.com",
		"betreiber_email": "chef@mrknips.de",
	})

	assert.True(t, report.Ok())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"buero@mrknips.de", "chef@mrknips.de"}, sender.sent[0].CC)
	assert.Equal(t, "antwort@mrknips.de", sender.sent[0].ReplyTo)
}
