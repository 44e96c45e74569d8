package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mguentner/mailtoken/config"
	"github.com/mguentner/mailtoken/crypto"
	"github.com/mguentner/mailtoken/operations"
	"github.com/mguentner/mailtoken/state"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	StateKey       contextKey = "state"
	ConfigKey      contextKey = "config"
	FlowKey        contextKey = "flow"
	AccessTokenKey contextKey = "accessToken"
	RequestIDKey   contextKey = "requestID"

	RequestIDHeader = "X-Request-ID"
)

// WithEnvironment makes state, config and flow available to the handlers.
func WithEnvironment(h http.Handler, s *state.State, c config.Configurable, f *operations.Flow) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), StateKey, s)
		ctx = context.WithValue(ctx, ConfigKey, c)
		ctx = context.WithValue(ctx, FlowKey, f)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetStateAndConfig(w http.ResponseWriter, r *http.Request) (*state.State, *config.Config, bool) {
	state, _ := r.Context().Value(StateKey).(*state.State)
	configurable, _ := r.Context().Value(ConfigKey).(config.Configurable)
	if state == nil {
		log.Error().Msg("Setup error: No state in context")
		return nil, nil, false
	}
	if configurable == nil {
		log.Error().Msg("Setup error: No config in context")
		return nil, nil, false
	}
	config := configurable.GetConfig()
	return state, config, true
}

func GetFlow(w http.ResponseWriter, r *http.Request) (*operations.Flow, bool) {
	flow, _ := r.Context().Value(FlowKey).(*operations.Flow)
	if flow == nil {
		log.Error().Msg("Setup error: No flow in context")
		return nil, false
	}
	return flow, true
}

// WithRequestID tags every request with an id, taken from the
// X-Request-ID header when present.
func WithRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)
		log.Debug().Str("requestID", requestID).Str("method", r.Method).Msg(r.URL.Path)
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, requestID)))
	})
}

func HttpJSONError(w http.ResponseWriter, msg string, code int) {
	type JSONError struct {
		Msg string `json:"msg"`
	}
	jsonError := &JSONError{
		Msg: msg,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	encoder := json.NewEncoder(w)
	err := encoder.Encode(jsonError)
	if err != nil {
		log.Error().Msgf("Could not encode error: %v", err)
	}
}

type NoAuthorizationHeaderFound struct{}

func (e *NoAuthorizationHeaderFound) Error() string {
	return "NoAuthorizationHeaderFound"
}

type InvalidHeaderFormat struct{}

func (e *InvalidHeaderFormat) Error() string {
	return "InvalidHeaderFormat"
}

func ExtractAuthHeader(r *http.Request) (string, error) {
	authorization := r.Header.Get("Authorization")
	if authorization == "" {
		return "", &NoAuthorizationHeaderFound{}
	}
	parts := strings.Fields(authorization)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", &InvalidHeaderFormat{}
	}
	return parts[1], nil
}

func WithJWTAuthorization(w http.ResponseWriter, r *http.Request) *http.Request {
	state, _, ok := GetStateAndConfig(w, r)
	if !ok {
		HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return nil
	}
	token, err := ExtractAuthHeader(r)
	if err != nil {
		HttpJSONError(w, err.Error(), http.StatusUnauthorized)
		return nil
	}
	claims, err := crypto.ValidateAccessToken(state.RSAKeyPairs, token)
	if err != nil {
		HttpJSONError(w, err.Error(), http.StatusUnauthorized)
		return nil
	}
	return r.WithContext(context.WithValue(r.Context(), AccessTokenKey, claims))
}

func WithJWTHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		newRequest := WithJWTAuthorization(w, r)
		if newRequest == nil {
			return
		}
		h.ServeHTTP(w, newRequest)
	})
}
