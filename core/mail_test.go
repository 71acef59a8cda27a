package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestEmailMessage_Render(t *testing.T) {
	ParseEmailTemplates(&Config{AppName: "SIMS", FrontendBaseURL: "https://sims.test", TestMode: true}, nopLogger{})

	msg := &EmailMessage{
		Subject:      "graded",
		TemplateName: "submission_graded",
		TemplateData: struct {
			StudentName  string
			Title        string
			Course       string
			Score        float64
			Marks        int
			Remark       string
			SubmissionID string
		}{"Ada", "Essay", "CPE 501", 80.5, 100, "Good work", "sub-1"},
	}
	require.NoError(t, msg.Render())

	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, "Hi Ada,")
	assert.Contains(t, msg.TextContent, "Score: 80.5/100")
	assert.Contains(t, msg.TextContent, "Remark: Good work")
	assert.Contains(t, msg.TextContent, "https://sims.test/submissions/sub-1")
	assert.Contains(t, msg.HTMLContent, "<strong>80.5/100</strong>")

	plain := &EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render())
	assert.Equal(t, "hello", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)
}
