package deliver

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/mguentner/mailtoken/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeMessagePlain(t *testing.T) {
	envelope := Envelope{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "Authentication",
		Body:    PlainBody{Text: "Your token is: abc123"},
	}
	msg, err := envelope.Message()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	assert.Contains(t, raw, "Subject: Authentication")
	assert.Contains(t, raw, "text/plain")
	assert.Contains(t, raw, "Your token is: abc123")
}

func TestEnvelopeMessageRendered(t *testing.T) {
	envelope := Envelope{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "Confirm",
		Body:    RenderedBody{HTML: "<p>abc123</p>", Elapsed: time.Millisecond},
	}
	msg, err := envelope.Message()
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "<p>abc123</p>")
}

func TestEnvelopeMessageInvalid(t *testing.T) {
	testSet := []Envelope{
		{From: "alice@example.com", To: []string{"bob@example.com"}},
		{From: "alice@example.com", Body: PlainBody{Text: "x"}},
		{From: "not an address", To: []string{"bob@example.com"}, Body: PlainBody{Text: "x"}},
	}
	for i, envelope := range testSet {
		_, err := envelope.Message()
		assert.Error(t, err, "envelope %d", i)
	}
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress("foo@bar.com"))
	assert.Error(t, ValidateAddress("foo"))
}

func TestNewTransport(t *testing.T) {
	transport, err := NewTransport(config.SMTPConfig{Service: "Gmail", User: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", transport.Host)
	assert.Equal(t, uint16(465), transport.Port)
	assert.True(t, transport.ImplicitTLS)
	assert.Equal(t, "u", transport.User)

	transport, err = NewTransport(config.SMTPConfig{Service: "gmail", Host: "mail.local", Port: 2525})
	require.NoError(t, err)
	assert.Equal(t, "mail.local", transport.Host)
	assert.Equal(t, uint16(2525), transport.Port)
	assert.False(t, transport.ImplicitTLS)

	transport, err = NewTransport(config.SMTPConfig{Host: "mail.local"})
	require.NoError(t, err)
	assert.Equal(t, uint16(25), transport.Port)
	assert.Equal(t, "mail.local:25", transport.addr())

	_, err = NewTransport(config.SMTPConfig{Service: "pigeon"})
	var unknown *UnknownService
	assert.True(t, errors.As(err, &unknown))

	_, err = NewTransport(config.SMTPConfig{})
	assert.Error(t, err)
}

func TestSendMailUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	transport := &SMTPTransport{Host: "127.0.0.1", Port: uint16(addr.Port)}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, err := transport.SendMail(ctx, Envelope{
		From:    "alice@example.com",
		To:      []string{"bob@example.com"},
		Subject: "x",
		Body:    PlainBody{Text: "x"},
	})
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestSendMailInvalidEnvelope(t *testing.T) {
	transport := &SMTPTransport{Host: "127.0.0.1", Port: 1}
	_, err := transport.SendMail(context.Background(), Envelope{From: "alice@example.com"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "body"))
}
