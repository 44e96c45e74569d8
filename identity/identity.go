// Package identity holds the in-memory record of one pending authentication
// attempt: who it is for, the credential they presented and the token mailed
// to them.
package identity

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/mguentner/mailtoken/token"
	"github.com/oklog/ulid/v2"
)

// Hasher is the one-way hashing collaborator used to store credentials.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext string, digest string) (bool, error)
}

// HashingFailure is returned when the Hasher fails. The identity is left
// untouched: no token is set and the credential stays as it was.
type HashingFailure struct {
	Err error
}

func (e *HashingFailure) Error() string {
	return fmt.Sprintf("HashingFailure: %v", e.Err)
}

func (e *HashingFailure) Unwrap() error {
	return e.Err
}

// Identity is safe for concurrent use.
type Identity struct {
	id    string
	email string

	mu         sync.Mutex
	credential string
	token      string
}

// New returns an identity with a fresh ULID and no token.
func New(email string, credential string) (*Identity, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Identity{
		id:         id.String(),
		email:      email,
		credential: credential,
	}, nil
}

func (i *Identity) ID() string {
	return i.id
}

func (i *Identity) Email() string {
	return i.email
}

// Token returns the generated token or "" if GenerateToken has not
// succeeded yet.
func (i *Identity) Token() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.token
}

// HasToken reports whether GenerateToken has succeeded. The credential is
// hashed iff this is true.
func (i *Identity) HasToken() bool {
	return i.Token() != ""
}

// Credential returns the plaintext credential before token generation and
// its digest afterwards.
func (i *Identity) Credential() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.credential
}

// GenerateToken sets the token and replaces the credential by its hash.
// Both happen or neither does. Calling it again once a token exists is a
// no-op, concurrent callers observe the same token.
func (i *Identity) GenerateToken(generator token.Generator, hasher Hasher) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.token != "" {
		return nil
	}
	t, err := generator.Generate()
	if err != nil {
		return err
	}
	if t == "" {
		return fmt.Errorf("generator returned an empty token")
	}
	digest, err := hasher.Hash(i.credential)
	if err != nil {
		return &HashingFailure{Err: err}
	}
	i.token = t
	i.credential = digest
	return nil
}

// VerifyCredential compares plaintext against the stored digest. It is
// false before a token has been generated since the credential is not
// hashed yet.
func (i *Identity) VerifyCredential(hasher Hasher, plaintext string) (bool, error) {
	i.mu.Lock()
	digest, hashed := i.credential, i.token != ""
	i.mu.Unlock()
	if !hashed {
		return false, nil
	}
	ok, err := hasher.Compare(plaintext, digest)
	if err != nil {
		return false, &HashingFailure{Err: err}
	}
	return ok, nil
}
