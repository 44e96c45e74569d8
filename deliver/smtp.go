package deliver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mguentner/mailtoken/config"
	"github.com/rs/zerolog/log"
)

type SMTPTransport struct {
	Host        string
	Port        uint16
	ImplicitTLS bool
	User        string
	Password    string
	// Sent with EHLO, defaults to localhost
	LocalName string
}

type UnknownService struct {
	Service string
}

func (e *UnknownService) Error() string {
	return fmt.Sprintf("UnknownService: %s", e.Service)
}

// NewTransport resolves the SMTP endpoint from the config. An explicit
// host and port win over the well-known service entry.
func NewTransport(config config.SMTPConfig) (*SMTPTransport, error) {
	transport := &SMTPTransport{
		Host:        config.Host,
		Port:        config.Port,
		ImplicitTLS: config.ImplicitTLS,
		User:        config.User,
		Password:    config.Password,
	}
	if config.Service != "" {
		service, ok := wellKnownServices[strings.ToLower(config.Service)]
		if !ok && config.Host == "" {
			return nil, &UnknownService{Service: config.Service}
		}
		if ok && transport.Host == "" {
			transport.Host = service.Host
			transport.ImplicitTLS = service.ImplicitTLS
			if transport.Port == 0 {
				transport.Port = service.Port
			}
		}
	}
	if transport.Host == "" {
		return nil, errors.New("No SMTP host configured")
	}
	if transport.Port == 0 {
		transport.Port = 25
	}
	return transport, nil
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.Host, fmt.Sprintf("%d", t.Port))
}

func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr())
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return nil, err
		}
	}
	if t.ImplicitTLS {
		conn = tls.Client(conn, &tls.Config{ServerName: t.Host})
	}
	return conn, nil
}

// closeOnDone closes conn when ctx ends before the returned stop func is
// called. The smtp client resets connection deadlines on every command, so
// this is what interrupts a stalled session.
func closeOnDone(ctx context.Context, conn net.Conn) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// SendMail runs one SMTP transaction. Recipients refused at RCPT end up in
// Rejected; if none is accepted no DATA is sent and the result carries an
// empty Accepted list.
func (t *SMTPTransport) SendMail(ctx context.Context, envelope Envelope) (*DeliveryResult, error) {
	msg, err := envelope.Message()
	if err != nil {
		return nil, err
	}
	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	stop := closeOnDone(ctx, conn)
	defer stop()

	result, err := t.transact(ctx, conn, envelope, msg)
	if err != nil {
		if ctxErr := contextError(ctx); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return result, nil
}

// contextError also reports a passed deadline whose timer has not fired yet,
// since the connection deadline can trip first.
func contextError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		return context.DeadlineExceeded
	}
	return nil
}

func (t *SMTPTransport) transact(ctx context.Context, conn net.Conn, envelope Envelope, msg io.WriterTo) (*DeliveryResult, error) {
	client, err := smtp.NewClient(conn, t.Host)
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer client.Close()
	if deadline, ok := ctx.Deadline(); ok {
		client.CommandTimeout = time.Until(deadline)
		client.SubmissionTimeout = time.Until(deadline)
	}

	localName := t.LocalName
	if localName == "" {
		localName = "localhost"
	}
	if err := client.Hello(localName); err != nil {
		return nil, err
	}
	if !t.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: t.Host}); err != nil {
				return nil, err
			}
		}
	}
	if t.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := sasl.NewPlainClient("", t.User, t.Password)
			if err := client.Auth(auth); err != nil {
				return nil, err
			}
		}
	}
	if err := client.Mail(envelope.From, nil); err != nil {
		return nil, err
	}

	result := &DeliveryResult{}
	for _, recipient := range envelope.To {
		err := client.Rcpt(recipient)
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			log.Warn().Str("module", "deliver").Int("code", smtpErr.Code).Msgf("Recipient refused: %s", smtpErr.Message)
			result.Rejected = append(result.Rejected, recipient)
			continue
		}
		if err != nil {
			return nil, err
		}
		result.Accepted = append(result.Accepted, recipient)
	}
	if len(result.Accepted) == 0 {
		client.Quit()
		return result, nil
	}

	w, err := client.Data()
	if err != nil {
		return nil, err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	if err := client.Quit(); err != nil {
		log.Debug().Str("module", "deliver").Msgf("QUIT failed after delivery: %v", err)
	}
	return result, nil
}
