package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
)

func TestNewSMTPMailerDisabledWithoutHost(t *testing.T) {
	assert.Nil(t, NewSMTPMailer(config.NotificationConfig{}))
	assert.NotNil(t, NewSMTPMailer(config.NotificationConfig{SMTPHost: "smtp.example.com", SMTPPort: 587}))
}

func TestBuildMessage(t *testing.T) {
	msg, err := build("desk@example.com", Message{To: []string{" jo@example.com ", ""}, Subject: "Hi", Body: "text"})
	require.NoError(t, err)
	assert.Equal(t, []string{"jo@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"desk@example.com"}, msg.GetHeader("From"))
}

func TestBuildMessageRequiresRecipientAndSubject(t *testing.T) {
	_, err := build("desk@example.com", Message{Subject: "Hi"})
	assert.Error(t, err)
	_, err = build("desk@example.com", Message{To: []string{"jo@example.com"}})
	assert.Error(t, err)
}
