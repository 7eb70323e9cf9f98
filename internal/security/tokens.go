package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const (
	ScopeAccess        = "access"
	ScopePasswordReset = "password_reset"

	DefaultAccessTokenTTL = 30 * time.Minute
	DefaultResetTokenTTL  = 10 * time.Minute
)

// ErrInvalidToken is returned for every verification failure: bad signature,
// malformed input, expiry or wrong scope are not told apart.
var ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", types.ErrUnauthenticated)

// TokenConfig holds the signing secret and lifetimes. It is the only way the
// secret reaches the issuer.
type TokenConfig struct {
	SecretKey      string
	Issuer         string
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

// Claims are the custom claims of both token kinds.
type Claims struct {
	Scope string `json:"scope"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret    []byte
	issuer    string
	accessTTL time.Duration
	resetTTL  time.Duration
	method    jwt.SigningMethod
	now       func() time.Time
}

func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("token issuer: secret key cannot be empty")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTokenTTL
	}
	resetTTL := cfg.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &TokenIssuer{
		secret:    []byte(cfg.SecretKey),
		issuer:    cfg.Issuer,
		accessTTL: accessTTL,
		resetTTL:  resetTTL,
		method:    jwt.SigningMethodHS256,
		now:       time.Now,
	}, nil
}

type tokenOptions struct {
	ttl  time.Duration
	role string
}

type TokenOption func(*tokenOptions)

// WithTTL overrides the default lifetime. A negative value yields an already expired token.
func WithTTL(ttl time.Duration) TokenOption {
	return func(o *tokenOptions) { o.ttl = ttl }
}

// WithRole embeds the role name in an access token.
func WithRole(role string) TokenOption {
	return func(o *tokenOptions) { o.role = role }
}

// IssueAccessToken mints a session token. The subject is stored as a string
// whatever its Go type.
func (t *TokenIssuer) IssueAccessToken(subject any, opts ...TokenOption) (string, error) {
	o := tokenOptions{ttl: t.accessTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return t.sign(fmt.Sprint(subject), ScopeAccess, o)
}

// IssueResetToken mints a short-lived token that only authorizes a password reset for username.
func (t *TokenIssuer) IssueResetToken(username string, opts ...TokenOption) (string, error) {
	o := tokenOptions{ttl: t.resetTTL}
	for _, opt := range opts {
		opt(&o)
	}
	o.role = ""
	return t.sign(username, ScopePasswordReset, o)
}

func (t *TokenIssuer) sign(subject, scope string, o tokenOptions) (string, error) {
	now := t.now()
	claims := Claims{
		Scope: scope,
		Role:  o.role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(o.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(t.method, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature, expiry and scope of a session token.
func (t *TokenIssuer) VerifyAccessToken(token string) (*Claims, error) {
	claims, err := t.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Scope != ScopeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyResetToken validates a reset token and returns the username it was issued for.
func (t *TokenIssuer) VerifyResetToken(token string) (string, error) {
	claims, err := t.parse(token)
	if err != nil {
		return "", err
	}
	if claims.Scope != ScopePasswordReset {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (t *TokenIssuer) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{t.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(t.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
