package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/mguentner/mailtoken/config"
)

const (
	AccessTokenType  = "access"
	RefreshTokenType = "refresh"
)

// UserInfo is what a redeemed token proves: the mail address it was sent to
// and the authentication attempt it belonged to.
type UserInfo struct {
	Email      string
	IdentityID string
}

// DefaultClaims carry the identity id as subject so every session can be
// traced back to the token redemption that opened it.
type DefaultClaims struct {
	jwt.StandardClaims
	TokenType string `json:"tokenType"`
	Email     string `json:"email"`
}

func (c *DefaultClaims) UserInfo() UserInfo {
	return UserInfo{Email: c.Email, IdentityID: c.Subject}
}

// Session is the token pair handed out after a successful redemption.
type Session struct {
	AccessToken  string
	RefreshToken string
}

// IssueSession signs an access and a refresh token for userInfo, both issued
// at the given time with the key valid at that time.
func IssueSession(config config.Config, keyPairs []KeyPair, userInfo UserInfo, at time.Time) (*Session, error) {
	accessToken, err := CreateAccessToken(config, keyPairs, userInfo, at)
	if err != nil {
		return nil, err
	}
	refreshToken, err := CreateRefreshToken(config, keyPairs, userInfo, at)
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func CreateAccessToken(config config.Config, keyPairs []KeyPair, userInfo UserInfo, at time.Time) (string, error) {
	lifetime := time.Duration(config.AccessTokenLifetimeSeconds) * time.Second
	return signToken(config.ServiceName, keyPairs, at, lifetime, AccessTokenType, userInfo)
}

func CreateRefreshToken(config config.Config, keyPairs []KeyPair, userInfo UserInfo, at time.Time) (string, error) {
	lifetime := time.Duration(config.RefreshTokenLifetimeSeconds) * time.Second
	return signToken(config.ServiceName, keyPairs, at, lifetime, RefreshTokenType, userInfo)
}

func signToken(issuer string, keyPairs []KeyPair, at time.Time, lifetime time.Duration, tokenType string, userInfo UserInfo) (string, error) {
	signingKey := SigningKeyAt(keyPairs, at.Unix())
	if signingKey == nil {
		return "", &NoSigningKey{At: at}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, &DefaultClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   userInfo.IdentityID,
			IssuedAt:  at.Unix(),
			ExpiresAt: at.Add(lifetime).Unix(),
		},
		TokenType: tokenType,
		Email:     userInfo.Email,
	})
	t.Header["kid"] = signingKey.ID()
	return t.SignedString(signingKey.PrivateKey)
}

type NoSigningKey struct {
	At time.Time
}

func (e *NoSigningKey) Error() string {
	return fmt.Sprintf("NoSigningKey: no key valid at %s", e.At.UTC().Format(time.RFC3339))
}

type UnknownSigningKey struct {
	KeyID string
}

func (e *UnknownSigningKey) Error() string {
	return fmt.Sprintf("UnknownSigningKey: %q", e.KeyID)
}

// TokenRejected wraps why a session token did not verify.
type TokenRejected struct {
	Err error
}

func (e *TokenRejected) Error() string {
	return fmt.Sprintf("TokenRejected: %v", e.Err)
}

func (e *TokenRejected) Unwrap() error {
	return e.Err
}

type InvalidTokenFound struct{}

func (e *InvalidTokenFound) Error() string {
	return "InvalidTokenFound"
}

type TokenExpired struct{}

func (e *TokenExpired) Error() string {
	return "TokenExpired"
}

func validateToken(keyPairs []KeyPair, token string, expectedTokenType string) (*DefaultClaims, error) {
	claims := &DefaultClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("Unexpected signing method %v", t.Header["alg"])
		}
		kid, _ := t.Header["kid"].(string)
		keyPair := keyByID(keyPairs, kid)
		if keyPair == nil {
			return nil, &UnknownSigningKey{KeyID: kid}
		}
		return keyPair.PublicKey, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Errors&jwt.ValidationErrorExpired != 0 {
				return nil, &TokenExpired{}
			}
			if validationErr.Inner != nil {
				return nil, &TokenRejected{Err: validationErr.Inner}
			}
		}
		return nil, &TokenRejected{Err: err}
	}
	if claims.TokenType != expectedTokenType {
		return nil, &InvalidTokenFound{}
	}
	return claims, nil
}

func ValidateRefreshToken(keyPairs []KeyPair, token string) (*DefaultClaims, error) {
	return validateToken(keyPairs, token, RefreshTokenType)
}

func ValidateAccessToken(keyPairs []KeyPair, token string) (*DefaultClaims, error) {
	return validateToken(keyPairs, token, AccessTokenType)
}
