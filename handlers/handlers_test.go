package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/mguentner/mailtoken/crypto"
	"github.com/mguentner/mailtoken/deliver"
	"github.com/mguentner/mailtoken/middleware"
	"github.com/mguentner/mailtoken/operations"
	"github.com/mguentner/mailtoken/registry"
	"github.com/mguentner/mailtoken/state"
	"github.com/mguentner/mailtoken/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingTransport struct {
	mu        sync.Mutex
	envelopes []deliver.Envelope
	reject    bool
}

func (t *recordingTransport) SendMail(ctx context.Context, envelope deliver.Envelope) (*deliver.DeliveryResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.envelopes = append(t.envelopes, envelope)
	if t.reject {
		return &deliver.DeliveryResult{Rejected: envelope.To}, nil
	}
	return &deliver.DeliveryResult{Accepted: envelope.To}, nil
}

func (t *recordingTransport) lastToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	body := t.envelopes[len(t.envelopes)-1].Body.(deliver.PlainBody)
	return strings.TrimPrefix(body.Text, "Your token is: ")
}

func newTestServer(t *testing.T, transport deliver.Transport) http.Handler {
	config := test.DefaultConfig()
	s, err := state.NewState(config, crypto.KeyPairForTesting())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	flow := operations.NewFlow(
		registry.New(),
		operations.WithHasher(crypto.BcryptHasher{Cost: bcrypt.MinCost}),
		operations.WithTransport(transport),
		operations.WithRecorder(s),
	)
	return NewRouter(s, &config, flow, nil)
}

func do(t *testing.T, handler http.Handler, method string, path string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v[0])
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginAndAuthenticate(t *testing.T) {
	transport := &recordingTransport{}
	server := newTestServer(t, transport)

	rec := do(t, server, "POST", "/api/login", map[string]string{"email": "foo@bar.com", "password": "123456789"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok := transport.lastToken()
	require.Len(t, tok, 10)

	rec = do(t, server, "GET", "/api/tokens/"+tok+"/status", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())

	rec = do(t, server, "POST", "/api/auth", map[string]string{"token": tok}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var response AccessRefreshKeysResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	claims, err := crypto.ValidateAccessToken(crypto.KeyPairForTesting(), response.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "foo@bar.com", claims.Email)
	assert.Len(t, claims.Subject, 26)
	assert.Equal(t, "TestService", claims.Issuer)

	rec = do(t, server, "GET", "/api/info", nil, http.Header{"Authorization": {"Bearer " + response.AccessToken}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "foo@bar.com")

	rec = do(t, server, "POST", "/api/auth", map[string]string{"token": tok}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, server, "GET", "/api/tokens/"+tok+"/status", nil, nil)
	assert.JSONEq(t, `{"status":"redeemed"}`, rec.Body.String())

	rec = do(t, server, "POST", "/api/refresh", map[string]string{"refreshToken": response.RefreshToken}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticateWithPassword(t *testing.T) {
	transport := &recordingTransport{}
	server := newTestServer(t, transport)

	rec := do(t, server, "POST", "/api/login", map[string]string{"email": "foo@bar.com", "password": "123456789"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := transport.lastToken()

	rec = do(t, server, "POST", "/api/auth", map[string]string{"token": tok, "password": "wrong"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, server, "POST", "/api/auth", map[string]string{"token": tok, "password": "123456789"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginInvalidEmail(t *testing.T) {
	server := newTestServer(t, &recordingTransport{})
	rec := do(t, server, "POST", "/api/login", map[string]string{"email": "nope"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, server, "POST", "/api/login", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginDeliveryRejected(t *testing.T) {
	transport := &recordingTransport{reject: true}
	server := newTestServer(t, transport)

	rec := do(t, server, "POST", "/api/login", map[string]string{"email": "foo@bar.com"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = do(t, server, "POST", "/api/auth", map[string]string{"token": transport.lastToken()}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownTokenStatus(t *testing.T) {
	server := newTestServer(t, &recordingTransport{})
	rec := do(t, server, "GET", "/api/tokens/unknown/status", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInfoRequiresToken(t *testing.T) {
	server := newTestServer(t, &recordingTransport{})
	rec := do(t, server, "GET", "/api/info", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestID(t *testing.T) {
	server := newTestServer(t, &recordingTransport{})
	rec := do(t, server, "GET", "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(middleware.RequestIDHeader), 36)

	rec = do(t, server, "GET", "/health", nil, http.Header{middleware.RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", rec.Header().Get(middleware.RequestIDHeader))
}
