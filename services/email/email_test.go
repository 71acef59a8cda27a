package emailsvc

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sims-edu/sims/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConf() *core.Config {
	return &core.Config{
		AppName:          "SIMS",
		DefaultFromEmail: mail.Address{Name: "SIMS", Address: "noreply@sims.test"},
		TestMode:         true,
	}
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	ResetSentMessages()
	svc := NewConsoleServiceMock(testConf(), nopLogger{})

	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: "Jane", Address: "jane@sims.test"}},
		Subject: "Hello",
		BodyStr: "hello there",
	}
	svc.SendMessages(
		msg,
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "empty@sims.test"}}, Subject: "no content"},
	)

	sent := SentMessagesSnapshot()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "Hello", sent[0].Subject)
		assert.Equal(t, "hello there", sent[0].TextContent)
	}
}

func TestSendgridService_prepare(t *testing.T) {
	svc := NewSendgridService(testConf(), nopLogger{}).(*sendgridService)
	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "Jane", Address: "jane@sims.test"}},
		Cc:          []mail.Address{{Address: "cc@sims.test"}},
		Subject:     "Graded",
		TextContent: "text",
		HTMLContent: "<p>html</p>",
	})

	assert.Equal(t, "noreply@sims.test", m.From.Address)
	if assert.Len(t, m.Personalizations, 1) {
		p := m.Personalizations[0]
		assert.Equal(t, "[SIMS] Graded", p.Subject)
		assert.Equal(t, "jane@sims.test", p.To[0].Address)
		assert.Equal(t, "cc@sims.test", p.CC[0].Address)
	}
	assert.Len(t, m.Content, 2)
	assert.Empty(t, m.Attachments)
}
