package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrTokensDisabled is returned when no signing key is configured.
	ErrTokensDisabled = errors.New("signed tokens are not configured")
)

const tokenTypeAccess = "access"

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey           string
	Issuer              string
	AccessTokenDuration time.Duration
}

// JWTClaims represents the custom claims of an access token.
type JWTClaims struct {
	UserID    string `json:"user_id"`
	Plan      string `json:"plan,omitempty"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager signs and verifies access tokens.
type JWTManager struct {
	config JWTConfig
}

// NewJWTManager creates a new JWTManager. An empty secret disables tokens.
func NewJWTManager(config JWTConfig) *JWTManager {
	if config.AccessTokenDuration <= 0 {
		config.AccessTokenDuration = 15 * time.Minute
	}
	return &JWTManager{config: config}
}

// Enabled reports whether a signing key is configured.
func (m *JWTManager) Enabled() bool {
	return m != nil && m.config.SecretKey != ""
}

// GenerateAccessToken issues an access token for userID. Tokens are minted
// by the product's API; the gateway only verifies them, so this exists for
// tests and local tooling that need a token signed with the shared key.
func (m *JWTManager) GenerateAccessToken(userID, plan string) (string, error) {
	if !m.Enabled() {
		return "", ErrTokensDisabled
	}
	now := time.Now()
	claims := JWTClaims{
		UserID:    userID,
		Plan:      plan,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// ValidateAccessToken verifies signature, expiry, issuer and token type.
func (m *JWTManager) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	if !m.Enabled() {
		return nil, ErrTokensDisabled
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != tokenTypeAccess || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// looksLikeJWT reports whether s has the three dot-separated segments of a
// compact JWS.
func looksLikeJWT(s string) bool {
	return strings.Count(s, ".") == 2
}
