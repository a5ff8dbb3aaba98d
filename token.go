package authd

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig holds the verification secret and optional claim constraints
// for bearer tokens.
type TokenConfig struct {
	// Secret is the HMAC key used to verify (and mint) tokens.
	Secret string
	// Issuer, when set, must match the token's iss claim.
	Issuer string
	// Audience, when set, must be present in the token's aud claim.
	Audience string
	// Leeway is the clock-skew allowance applied to time-based claims.
	Leeway time.Duration
	// TTL is the lifetime applied by Mint. Defaults to one hour.
	TTL time.Duration
}

// accessClaims is the claim set carried by authd bearer tokens.
type accessClaims struct {
	Permissions []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator verifies bearer tokens and produces Principals. It is
// stateless beyond its configuration and safe for concurrent use.
type TokenValidator struct {
	cfg    TokenConfig
	parser *jwt.Parser
}

// NewTokenValidator creates a validator for HS256-signed tokens.
func NewTokenValidator(cfg TokenConfig) (*TokenValidator, error) {
	if cfg.Secret == "" {
		return nil, errors.New("new token validator: secret cannot be empty")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}

	return &TokenValidator{cfg: cfg, parser: jwt.NewParser(options...)}, nil
}

// Validate parses and verifies a raw bearer token. It returns the
// authenticated Principal, or nil for an absent, malformed, expired, or
// signature-mismatched token. Failures are deliberately not distinguished at
// this layer: the request gate forwards unauthenticated requests and leaves
// rejection to route-level authorization.
func (v *TokenValidator) Validate(raw string) *Principal {
	if raw == "" {
		return nil
	}

	token, err := v.parser.ParseWithClaims(raw, &accessClaims{}, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || claims.Subject == "" {
		return nil
	}

	p := &Principal{
		Subject:     claims.Subject,
		Permissions: claims.Permissions,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}

	return p
}

// Mint signs a token for the given subject and permission set using the
// validator's configuration. It backs the operator CLI and tests; the real
// login flow issuing tokens lives outside this module.
func (v *TokenValidator) Mint(subject string, permissions []string) (string, error) {
	if subject == "" {
		return "", errors.New("mint token: subject cannot be empty")
	}

	now := time.Now()
	claims := accessClaims{
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.cfg.TTL)),
		},
	}
	if v.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.cfg.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(v.cfg.Secret))
}
