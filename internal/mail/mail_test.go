package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOTPMessageContent(t *testing.T) {
	msg := OTPMessage("reader@example.com", "123456", "registration", 10*time.Minute)
	require.Equal(t, "reader@example.com", msg.To)
	require.Contains(t, msg.Text, "123456")
	require.Contains(t, msg.Text, "10 minutes")
	require.Contains(t, msg.HTML, "<strong>123456</strong>")

	reset := OTPMessage("reader@example.com", "654321", "reset", 10*time.Minute)
	require.True(t, strings.HasPrefix(reset.Subject, "Reset"))
}

func TestBuildMessageValidatesAddresses(t *testing.T) {
	_, err := buildMessage("not an address", Message{To: "a@example.com"})
	require.Error(t, err)

	_, err = buildMessage("from@example.com", Message{To: "broken"})
	require.Error(t, err)

	m, err := buildMessage("Mindful Path <from@example.com>", Message{To: "a@example.com", Subject: "hi", Text: "body", HTML: "<p>body</p>"})
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestLogMailerRecordsDelivery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mailer := NewLogMailer(zap.New(core))

	require.NoError(t, mailer.Send(context.Background(), Message{To: "a@example.com", Subject: "s"}))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "a@example.com", logs.All()[0].ContextMap()["to"])
}
