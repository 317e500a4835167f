package notify

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/domain/notify"
)

func TestSMTPNotifier_Send(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte

	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 2525, From: "noreply@inventra.local"})
	n.sendMail = func(addr string, _ smtp.Auth, from string, to []string, body []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, body
		return nil
	}

	err := n.Send(context.Background(), notify.Message{
		Kind:      notify.KindTransferApproved,
		Recipient: "manager@acme.test",
		Subject:   "Transfer request TR-2026-00003 is now APPROVED",
		Data:      map[string]any{"number": "TR-2026-00003"},
	})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "noreply@inventra.local", gotFrom)
	assert.Equal(t, []string{"manager@acme.test"}, gotTo)
	assert.Contains(t, string(gotBody), "Subject: Transfer request TR-2026-00003 is now APPROVED")
	assert.Contains(t, string(gotBody), "transfer_approved")
	assert.Contains(t, string(gotBody), "number: TR-2026-00003")
}

func TestSMTPNotifier_Send_SkipsNonEmailRecipient(t *testing.T) {
	called := false
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.local", Port: 25, From: "noreply@inventra.local"})
	n.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	err := n.Send(context.Background(), notify.Message{
		Kind:      notify.KindTransferRequested,
		Recipient: "0198f2a0-0000-7000-8000-000000000001",
		Subject:   "irrelevant",
	})
	require.NoError(t, err)
	assert.False(t, called)
}
