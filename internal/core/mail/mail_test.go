package mail

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynhne/user-auth/config"
)

func TestResetPasswordEmail(t *testing.T) {
	html, err := ResetPasswordEmail("http://localhost:3000/", "0f8e3c1a-2b4d-4e6f-8a9b-0c1d2e3f4a5b")
	require.NoError(t, err)
	assert.Equal(t,
		`<a href="http://localhost:3000/change-password/0f8e3c1a-2b4d-4e6f-8a9b-0c1d2e3f4a5b">reset password</a>`,
		html)
}

func TestResetPasswordEmail_EscapesToken(t *testing.T) {
	html, err := ResetPasswordEmail("https://app.example.com", `"><script>`)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := l.WithContext(context.Background())

	require.NoError(t, NewLogMailer().Send(ctx, "ann@example.com", ResetPasswordSubject, "<b>hi</b>"))
	assert.Contains(t, buf.String(), `"to":"ann@example.com"`)
	assert.Contains(t, buf.String(), `"subject":"Change password"`)
}

func TestNew(t *testing.T) {
	assert.IsType(t, &LogMailer{}, New(config.SMTPConfig{}))
	assert.IsType(t, &SMTPMailer{}, New(config.SMTPConfig{Host: "smtp.example.com", Port: 587}))
}

func TestSMTPMailer_InvalidFrom(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "not an address"})
	err := m.Send(context.Background(), "ann@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set from")
}

func TestSMTPMailer_UnreachableRelay(t *testing.T) {
	m := NewSMTPMailer(config.SMTPConfig{
		Host:    "127.0.0.1",
		Port:    1,
		From:    "no-reply@example.com",
		Timeout: time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := m.Send(ctx, "ann@example.com", ResetPasswordSubject, "<b>hi</b>")
	assert.Error(t, err)
}
