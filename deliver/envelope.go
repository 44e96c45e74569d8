package deliver

import (
	"context"
	"errors"
	"net/mail"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Body is either a PlainBody or a RenderedBody.
type Body interface {
	contentType() gomail.ContentType
	content() string
}

type PlainBody struct {
	Text string
}

func (b PlainBody) contentType() gomail.ContentType { return gomail.TypeTextPlain }
func (b PlainBody) content() string { return b.Text }

// RenderedBody is the output of a template render.
type RenderedBody struct {
	HTML    string
	Elapsed time.Duration
}

func (b RenderedBody) contentType() gomail.ContentType { return gomail.TypeTextHTML }
func (b RenderedBody) content() string { return b.HTML }

type Envelope struct {
	From    string
	To      []string
	Subject string
	Body    Body
}

// DeliveryResult lists the recipients the server took and the ones it
// refused.
type DeliveryResult struct {
	Accepted []string
	Rejected []string
}

// Transport hands an envelope to a mail server.
type Transport interface {
	SendMail(ctx context.Context, envelope Envelope) (*DeliveryResult, error)
}

func ValidateAddress(address string) error {
	_, err := mail.ParseAddress(address)
	return err
}

// Message builds the MIME message for the envelope.
func (e Envelope) Message() (*gomail.Msg, error) {
	if e.Body == nil {
		return nil, errors.New("envelope has no body")
	}
	if len(e.To) == 0 {
		return nil, errors.New("envelope has no recipients")
	}
	msg := gomail.NewMsg()
	if err := msg.From(e.From); err != nil {
		return nil, err
	}
	if err := msg.To(e.To...); err != nil {
		return nil, err
	}
	msg.Subject(e.Subject)
	msg.SetBodyString(e.Body.contentType(), e.Body.content())
	return msg, nil
}
