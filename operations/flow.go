package operations

import (
	"context"
	"time"

	"github.com/mguentner/mailtoken/crypto"
	"github.com/mguentner/mailtoken/deliver"
	"github.com/mguentner/mailtoken/identity"
	"github.com/mguentner/mailtoken/metrics"
	"github.com/mguentner/mailtoken/registry"
	"github.com/mguentner/mailtoken/state"
	"github.com/mguentner/mailtoken/token"
	"github.com/rs/zerolog/log"
)

// Recorder keeps the lifecycle journal, see state.State.
type Recorder interface {
	Record(token string, status state.Status) error
}

// Flow issues tokens by mail and redeems them.
type Flow struct {
	registry  *registry.Registry
	scheduler registry.Scheduler
	generator token.Generator
	hasher    identity.Hasher
	transport deliver.Transport
	recorder  Recorder
	metrics   *metrics.Metrics
}

type Option func(*Flow)

func WithScheduler(scheduler registry.Scheduler) Option {
	return func(f *Flow) { f.scheduler = scheduler }
}

func WithGenerator(generator token.Generator) Option {
	return func(f *Flow) { f.generator = generator }
}

func WithHasher(hasher identity.Hasher) Option {
	return func(f *Flow) { f.hasher = hasher }
}

// WithTransport sets the transport RequestToken sends with.
func WithTransport(transport deliver.Transport) Option {
	return func(f *Flow) { f.transport = transport }
}

func WithRecorder(recorder Recorder) Option {
	return func(f *Flow) { f.recorder = recorder }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Flow) { f.metrics = m }
}

func NewFlow(reg *registry.Registry, opts ...Option) *Flow {
	f := &Flow{
		registry:  reg,
		scheduler: registry.TimeScheduler{},
		generator: token.NewHexGenerator(10),
		hasher:    crypto.BcryptHasher{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type AuthenticationRequest struct {
	// Identity must have a token already, see identity.GenerateToken.
	Identity  *identity.Identity
	Transport deliver.Transport
	Envelope  deliver.Envelope
	TTL       time.Duration
}

// AuthenticateUser sends the envelope and, once the server accepted at least
// one recipient, registers the identity's token for TTL. It returns the
// token.
func (f *Flow) AuthenticateUser(ctx context.Context, request AuthenticationRequest) (string, error) {
	if request.TTL <= 0 {
		return "", &InvalidTTL{TTL: request.TTL}
	}
	if request.Transport == nil {
		return "", &NoTransport{}
	}
	if request.Identity == nil || !request.Identity.HasToken() {
		return "", &TokenNotGenerated{}
	}
	tok := request.Identity.Token()
	result, err := request.Transport.SendMail(ctx, request.Envelope)
	if err != nil {
		log.Warn().Str("identity", request.Identity.ID()).Msgf("Could not deliver token: %v", err)
		return "", err
	}
	if result == nil || len(result.Accepted) == 0 {
		f.metrics.DeliveryRejected()
		log.Warn().Str("identity", request.Identity.ID()).Msg("No recipient accepted")
		return "", &DeliveryRejected{Recipients: request.Envelope.To}
	}
	f.register(request.Identity, request.TTL)
	return tok, nil
}

func (f *Flow) register(ident *identity.Identity, ttl time.Duration) {
	f.record(ident.Token(), state.StatusPending)

	// the expiry callback must not run before Add has decided, otherwise a
	// short ttl could fire first and leave the entry behind forever
	registered := make(chan struct{})
	var added bool
	timer := f.scheduler.Schedule(ttl, func() {
		<-registered
		if added {
			f.expire(ident)
		}
	})
	added = f.registry.Add(ident, timer)
	close(registered)
	if !added {
		timer.Stop()
		log.Debug().Str("identity", ident.ID()).Msg("Token already registered")
		return
	}
	f.metrics.Issued()
	log.Info().Str("identity", ident.ID()).Dur("ttl", ttl).Msg("Token issued")
}

func (f *Flow) expire(ident *identity.Identity) {
	if _, ok := f.registry.Remove(ident); !ok {
		return
	}
	f.record(ident.Token(), state.StatusExpired)
	f.metrics.Expired()
	log.Info().Str("identity", ident.ID()).Msg("Token expired")
}

// Redeem consumes token. It is false for unknown, expired and already
// redeemed tokens.
func (f *Flow) Redeem(tok string) bool {
	_, ok := f.RedeemIdentity(tok)
	return ok
}

// RedeemIdentity is Redeem returning the identity the token was issued to.
func (f *Flow) RedeemIdentity(tok string) (*identity.Identity, bool) {
	entry := f.registry.Get(tok)
	if entry == nil {
		return nil, false
	}
	removed, ok := f.registry.Remove(entry.Identity)
	if !ok {
		// expiry won between Get and Remove
		return nil, false
	}
	if removed.Expiry != nil {
		removed.Expiry.Stop()
	}
	f.record(tok, state.StatusRedeemed)
	f.metrics.Redeemed()
	log.Info().Str("identity", removed.Identity.ID()).Msg("Token redeemed")
	return removed.Identity, true
}

// RedeemWithCredential redeems token only if credential matches the one the
// token was requested with. On a mismatch the token stays pending.
func (f *Flow) RedeemWithCredential(tok string, credential string) (*identity.Identity, bool, error) {
	entry := f.registry.Get(tok)
	if entry == nil {
		return nil, false, nil
	}
	ok, err := entry.Identity.VerifyCredential(f.hasher, credential)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, &CredentialMismatch{}
	}
	ident, ok := f.RedeemIdentity(tok)
	return ident, ok, nil
}

// Pending counts registered tokens.
func (f *Flow) Pending() int {
	return f.registry.Len()
}

func (f *Flow) record(tok string, status state.Status) {
	if f.recorder == nil {
		return
	}
	if err := f.recorder.Record(tok, status); err != nil {
		log.Warn().Str("module", "state").Msgf("Could not record %s: %v", status, err)
	}
}
