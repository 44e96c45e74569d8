package operations

import (
	"context"
	"time"

	"github.com/mguentner/mailtoken/config"
	"github.com/mguentner/mailtoken/deliver"
	"github.com/mguentner/mailtoken/identity"
	"github.com/mguentner/mailtoken/template"
)

// Element ids RequestToken fills in a configured HTML document.
const (
	TokenElementID = "token"
	UserElementID  = "user"
)

// Document is an HTML file whose tagged elements get personalized.
type Document struct {
	Path    string
	Matches []template.Match
}

type MailOptions struct {
	Sender    string
	Recipient string
	Token     string
	// Defaults to the en:email-subject template
	Subject string
	Service string
	// nil sends the plain text body
	Document *Document
}

// NewMailOptions composes the envelope. A Document yields a RenderedBody,
// otherwise the body is the plain "Your token is" text.
func (f *Flow) NewMailOptions(options MailOptions) (deliver.Envelope, error) {
	data := template.TemplateData{
		Service: options.Service,
		Token:   options.Token,
		Email:   options.Recipient,
	}
	subject := options.Subject
	if subject == "" {
		var err error
		subject, err = template.EvaluateTemplate("en", "email-subject", data)
		if err != nil {
			return deliver.Envelope{}, err
		}
	}
	envelope := deliver.Envelope{
		From:    options.Sender,
		To:      []string{options.Recipient},
		Subject: subject,
	}
	if options.Document == nil {
		text, err := template.EvaluateTemplate("en", "email", data)
		if err != nil {
			return deliver.Envelope{}, err
		}
		envelope.Body = deliver.PlainBody{Text: text}
		return envelope, nil
	}
	rendered, err := template.Render(options.Document.Path, options.Document.Matches)
	if err != nil {
		return deliver.Envelope{}, err
	}
	f.metrics.ObserveRender(rendered.Elapsed)
	envelope.Body = deliver.RenderedBody{HTML: rendered.HTML, Elapsed: rendered.Elapsed}
	return envelope, nil
}

// RequestToken runs the whole issuing side for one login attempt: new
// identity, token generation, mail composition, delivery and registration.
func (f *Flow) RequestToken(ctx context.Context, config config.Config, email string, credential string) (string, error) {
	if f.transport == nil {
		return "", &NoTransport{}
	}
	ident, err := identity.New(email, credential)
	if err != nil {
		return "", err
	}
	err = ident.GenerateToken(f.generator, f.hasher)
	if err != nil {
		return "", err
	}
	options := MailOptions{
		Sender:    config.SMTP.FromAddr,
		Recipient: email,
		Token:     ident.Token(),
		Subject:   config.Template.Subject,
		Service:   config.ServiceName,
	}
	if config.Template.Path != "" {
		options.Document = &Document{
			Path: config.Template.Path,
			Matches: []template.Match{
				{ID: UserElementID, Value: email},
				{ID: TokenElementID, Value: ident.Token()},
			},
		}
	}
	envelope, err := f.NewMailOptions(options)
	if err != nil {
		return "", err
	}
	return f.AuthenticateUser(ctx, AuthenticationRequest{
		Identity:  ident,
		Transport: f.transport,
		Envelope:  envelope,
		TTL:       time.Millisecond * time.Duration(config.LoginTokenLifetimeMilliseconds),
	})
}
