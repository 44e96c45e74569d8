package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mguentner/mailtoken/config"
	"github.com/mguentner/mailtoken/crypto"
	"github.com/mguentner/mailtoken/deliver"
	"github.com/mguentner/mailtoken/identity"
	"github.com/mguentner/mailtoken/middleware"
	"github.com/mguentner/mailtoken/operations"
	"github.com/mguentner/mailtoken/state"
	"github.com/mguentner/mailtoken/template"
	"github.com/rs/zerolog/log"
)

type RequestTokenPayload struct {
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password"`
}

func (p RequestTokenPayload) validate() bool {
	return p.Email != nil && deliver.ValidateAddress(*p.Email) == nil
}

func statusForRequestError(err error) int {
	var rejected *operations.DeliveryRejected
	var hashingFailure *identity.HashingFailure
	var readFailure *template.DocumentReadFailure
	var matchFailure *template.TemplateMatchFailure
	var noTransport *operations.NoTransport
	switch {
	case errors.As(err, &rejected):
		return http.StatusBadGateway
	case errors.As(err, &hashingFailure), errors.As(err, &readFailure), errors.As(err, &matchFailure), errors.As(err, &noTransport):
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}

func RequestTokenHandler(w http.ResponseWriter, r *http.Request) {
	_, config, ok := middleware.GetStateAndConfig(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	flow, ok := middleware.GetFlow(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}

	var payload RequestTokenPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		middleware.HttpJSONError(w, fmt.Sprintf("Bad payload: %v", err), http.StatusBadRequest)
		return
	}
	if !payload.validate() {
		middleware.HttpJSONError(w, "Invalid payload: email missing or malformed", http.StatusBadRequest)
		return
	}
	_, err = flow.RequestToken(r.Context(), *config, *payload.Email, payload.Password)
	if err != nil {
		log.Warn().Msgf("Could not issue token: %v", err)
		middleware.HttpJSONError(w, fmt.Sprintf("Could not execute operation: %v", err), statusForRequestError(err))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type AuthenticatePayload struct {
	Token    string `json:"token"`
	Password string `json:"password,omitempty"`
}

type AccessRefreshKeysResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func issueAccessAndRefreshToken(w http.ResponseWriter, config config.Config, state state.State, userInfo crypto.UserInfo) {
	session, err := crypto.IssueSession(config, state.RSAKeyPairs, userInfo, time.Now())
	if err != nil {
		middleware.HttpJSONError(w, fmt.Sprintf("Could not execute operation: %v", err), http.StatusInternalServerError)
		return
	}
	response := AccessRefreshKeysResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Error().Msgf("Could not marshal: %v", err)
	}
}

// AuthenticateHandler redeems a mailed token. When a password is sent along
// it has to match the one the token was requested with.
func AuthenticateHandler(w http.ResponseWriter, r *http.Request) {
	state, config, ok := middleware.GetStateAndConfig(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	flow, ok := middleware.GetFlow(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	var payload AuthenticatePayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		log.Warn().Msgf("Bad payload: %s", err.Error())
		middleware.HttpJSONError(w, fmt.Sprintf("Bad payload: %v", err), http.StatusBadRequest)
		return
	}
	var redeemed *identity.Identity
	if payload.Password != "" {
		redeemed, ok, err = flow.RedeemWithCredential(payload.Token, payload.Password)
		if err != nil {
			middleware.HttpJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}
	} else {
		redeemed, ok = flow.RedeemIdentity(payload.Token)
	}
	if !ok {
		middleware.HttpJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}
	issueAccessAndRefreshToken(w, *config, *state, crypto.UserInfo{
		Email:      redeemed.Email(),
		IdentityID: redeemed.ID(),
	})
}

type RefreshPayload struct {
	RefreshToken string `json:"refreshToken"`
}

func RefreshHandler(w http.ResponseWriter, r *http.Request) {
	state, config, ok := middleware.GetStateAndConfig(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	var payload RefreshPayload
	err := json.NewDecoder(r.Body).Decode(&payload)
	if err != nil {
		log.Warn().Msgf("Bad payload: %s", err.Error())
		middleware.HttpJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	claims, err := crypto.ValidateRefreshToken(state.RSAKeyPairs, payload.RefreshToken)
	if err != nil {
		log.Warn().Msgf("Bad token: %s", err.Error())
		middleware.HttpJSONError(w, err.Error(), http.StatusUnauthorized)
		return
	}
	issueAccessAndRefreshToken(w, *config, *state, claims.UserInfo())
}

func ClaimsInfoHandler(w http.ResponseWriter, r *http.Request) {
	accessToken, ok := r.Context().Value(middleware.AccessTokenKey).(*crypto.DefaultClaims)
	if !ok || accessToken == nil {
		middleware.HttpJSONError(w, "No accessToken found", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(accessToken)
	if err != nil {
		log.Error().Msgf("Could not marshal: %v", err)
	}
}

type PublicKeyResponseItem struct {
	PublicKeyPEM         string `json:"key"`
	ValidFromUnixSeconds int64  `json:"validFrom"`
}

func PublicKeyHandler(w http.ResponseWriter, r *http.Request) {
	state, _, ok := middleware.GetStateAndConfig(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	response := []PublicKeyResponseItem{}
	for _, keyPair := range state.RSAKeyPairs {
		response = append(response, PublicKeyResponseItem{
			ValidFromUnixSeconds: keyPair.ValidFrom,
			PublicKeyPEM:         keyPair.PublicKeyPEM,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Error().Msgf("Could not marshal: %v", err)
	}
}

type TokenStatusResponse struct {
	Status state.Status `json:"status"`
}

func TokenStatusHandler(w http.ResponseWriter, r *http.Request) {
	s, _, ok := middleware.GetStateAndConfig(w, r)
	if !ok {
		middleware.HttpJSONError(w, "Configuration Error", http.StatusInternalServerError)
		return
	}
	status, err := s.StatusOf(mux.Vars(r)["token"])
	var noSuchToken *state.NoSuchToken
	if errors.As(err, &noSuchToken) {
		middleware.HttpJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		middleware.HttpJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(TokenStatusResponse{Status: status})
	if err != nil {
		log.Error().Msgf("Could not marshal: %v", err)
	}
}
