package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

func testIssuer(t testing.TB) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		SecretKey:      "test-secret",
		Issuer:         "test-issuer",
		AccessTokenTTL: 30 * time.Minute,
		ResetTokenTTL:  10 * time.Minute,
	})
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{})
	assert.Error(t, err)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueAccessToken("alice", WithRole("admin"))
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, ScopeAccess, claims.Scope)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestAccessToken_SubjectCoercedToString(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueAccessToken(123)
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "123", claims.Subject)
}

func TestAccessToken_Expired(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueAccessToken("alice", WithTTL(-time.Minute))
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestAccessToken_Tampered(t *testing.T) {
	issuer := testIssuer(t)
	other, err := NewTokenIssuer(TokenConfig{SecretKey: "other-secret", Issuer: "test-issuer"})
	require.NoError(t, err)

	forged, err := other.IssueAccessToken("alice")
	require.NoError(t, err)

	for name, token := range map[string]string{
		"wrong secret": forged,
		"garbage":      "invalid.token.here",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := issuer.VerifyAccessToken(token)
			assert.Equal(t, ErrInvalidToken, err, "every failure must be the same error")
		})
	}
}

func TestAccessToken_RejectsOtherAlgorithms(t *testing.T) {
	issuer := testIssuer(t)
	claims := Claims{
		Scope: ScopeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessToken_RejectsMissingExpiry(t *testing.T) {
	issuer := testIssuer(t)
	claims := Claims{
		Scope:            ScopeAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice", Issuer: "test-issuer"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetToken_RoundTrip(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueResetToken("alice")
	require.NoError(t, err)

	username, err := issuer.VerifyResetToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestResetToken_ShorterThanAccess(t *testing.T) {
	issuer := testIssuer(t)

	token, err := issuer.IssueResetToken("alice")
	require.NoError(t, err)

	claims, err := issuer.parse(token)
	require.NoError(t, err)
	assert.Equal(t, ScopePasswordReset, claims.Scope)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestScopeConfusion(t *testing.T) {
	issuer := testIssuer(t)

	access, err := issuer.IssueAccessToken("alice")
	require.NoError(t, err)
	reset, err := issuer.IssueResetToken("alice")
	require.NoError(t, err)

	_, err = issuer.VerifyResetToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken, "an access token must not reset a password")

	_, err = issuer.VerifyAccessToken(reset)
	assert.ErrorIs(t, err, ErrInvalidToken, "a reset token must not open a session")
}

func TestResetToken_ForeignScope(t *testing.T) {
	issuer := testIssuer(t)
	claims := Claims{
		Scope: "other_scope",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "test-issuer",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = issuer.VerifyResetToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetToken_Expired(t *testing.T) {
	issuer := testIssuer(t)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	token, err := issuer.IssueResetToken("alice")
	require.NoError(t, err)

	issuer.now = func() time.Time { return fixed.Add(11 * time.Minute) }
	_, err = issuer.VerifyResetToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_IssuerMismatch(t *testing.T) {
	issuer := testIssuer(t)
	other, err := NewTokenIssuer(TokenConfig{SecretKey: "test-secret", Issuer: "someone-else"})
	require.NoError(t, err)

	token, err := other.IssueAccessToken("alice")
	require.NoError(t, err)

	_, err = issuer.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
