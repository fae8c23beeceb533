package email

import (
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/powerplan_server/config"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestService(sent *[]sentMail, err error) *Service {
	cfg := &config.EmailConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "user",
		Password: "pass",
		From:     "billing@example.com",
	}
	return NewService(cfg).WithSendFunc(func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		*sent = append(*sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return err
	})
}

func TestService_SendRegistrationDecision(t *testing.T) {
	var sent []sentMail
	svc := newTestService(&sent, nil)

	require.NoError(t, svc.SendRegistrationDecision("jane@example.com", "Jane <Doe>", false, "SSN mismatch"))
	require.Len(t, sent, 1)

	assert.Equal(t, "smtp.example.com:587", sent[0].addr)
	assert.Equal(t, []string{"jane@example.com"}, sent[0].to)
	assert.Contains(t, sent[0].msg, "Subject: Registration rejected")
	assert.Contains(t, sent[0].msg, "SSN mismatch")
	assert.Contains(t, sent[0].msg, "Jane &lt;Doe&gt;")
}

func TestService_SendPlanDecision(t *testing.T) {
	var sent []sentMail
	svc := newTestService(&sent, nil)

	require.NoError(t, svc.SendPlanDecision("jane@example.com", "Jane", "Green Saver", true, ""))
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].msg, "Plan request approved")
	assert.NotContains(t, sent[0].msg, "Reason:")
}

func TestService_SendExpiryAlert(t *testing.T) {
	var sent []sentMail
	svc := newTestService(&sent, nil)

	require.NoError(t, svc.SendExpiryAlert("jane@example.com", "Jane", "Basic", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Contains(t, sent[0].msg, "05/03/2024")
}

func TestService_Disabled(t *testing.T) {
	called := false
	svc := NewService(&config.EmailConfig{}).WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	})

	assert.False(t, svc.Enabled())
	assert.NoError(t, svc.SendStatementReady("jane@example.com", "Jane", "https://x", "$10.00"))
	assert.False(t, called)
}

func TestService_SendError(t *testing.T) {
	var sent []sentMail
	svc := newTestService(&sent, errors.New("connection refused"))

	err := svc.SendStatementReady("jane@example.com", "Jane", "https://x", "$10.00")
	assert.EqualError(t, err, "connection refused")
}
