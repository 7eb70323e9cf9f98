package security

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const (
	// MinPasswordLength is counted in characters, not bytes.
	MinPasswordLength = 8
	// MaxHashInputBytes is the bcrypt input limit. Longer inputs are cut to this many bytes.
	MaxHashInputBytes = 72

	PasswordPolicyDescription = "the password must be at least 8 characters long, contain no spaces, " +
		"and include an uppercase letter, a lowercase letter and a special character"
)

// Policy rules, reported in the order they are checked.
const (
	RuleRequired  = "required"
	RuleLength    = "min_length"
	RuleNoSpaces  = "no_whitespace"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleSpecial   = "special_character"
)

// PolicyError reports the first password rule that was not met.
type PolicyError struct {
	Rule    string
	Message string
}

func (e *PolicyError) Error() string { return e.Message }

func (e *PolicyError) Unwrap() error { return types.ErrValidation }

// PolicyRule returns the failed rule name when err carries a PolicyError.
func PolicyRule(err error) string {
	var policyErr *PolicyError
	if errors.As(err, &policyErr) {
		return policyErr.Rule
	}
	return ""
}

// ValidatePasswordPolicy checks the password rules in order and stops at the
// first failure.
func ValidatePasswordPolicy(password string) error {
	switch {
	case password == "":
		return &PolicyError{Rule: RuleRequired, Message: "password is required: " + PasswordPolicyDescription}
	case utf8.RuneCountInString(password) < MinPasswordLength:
		return &PolicyError{Rule: RuleLength, Message: "password must be at least 8 characters long"}
	case strings.IndexFunc(password, unicode.IsSpace) >= 0:
		return &PolicyError{Rule: RuleNoSpaces, Message: "password must not contain spaces"}
	case strings.IndexFunc(password, unicode.IsUpper) < 0:
		return &PolicyError{Rule: RuleUppercase, Message: "password must contain at least one uppercase letter"}
	case strings.IndexFunc(password, unicode.IsLower) < 0:
		return &PolicyError{Rule: RuleLowercase, Message: "password must contain at least one lowercase letter"}
	case strings.IndexFunc(password, isSpecial) < 0:
		return &PolicyError{Rule: RuleSpecial, Message: "password must contain at least one special character"}
	}
	return nil
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// HasherConfig is passed to NewHasher at construction time.
type HasherConfig struct {
	Cost int
}

// Hasher produces and verifies bcrypt digests for passwords and security answers.
type Hasher struct {
	cost int
}

func NewHasher(cfg HasherConfig) *Hasher {
	cost := cfg.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt digest. Inputs beyond 72 bytes are truncated,
// so two secrets sharing their first 72 bytes hash to equivalent digests.
func (h *Hasher) Hash(secret string) (string, error) {
	start := time.Now()
	digest, err := bcrypt.GenerateFromPassword(truncate(secret), h.cost)
	metrics.Get().RecordPasswordHash(context.Background(), "hash", time.Since(start))
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest. Malformed digests yield false.
func (h *Hasher) Verify(secret, digest string) bool {
	if digest == "" {
		return false
	}
	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(digest), truncate(secret))
	metrics.Get().RecordPasswordHash(context.Background(), "verify", time.Since(start))
	return err == nil
}

// HashAnswer normalizes a security answer before hashing it.
func (h *Hasher) HashAnswer(answer string) (string, error) {
	return h.Hash(NormalizeAnswer(answer))
}

func (h *Hasher) VerifyAnswer(answer, digest string) bool {
	return h.Verify(NormalizeAnswer(answer), digest)
}

// NormalizeAnswer trims surrounding whitespace and lowercases.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

func truncate(secret string) []byte {
	b := []byte(secret)
	if len(b) > MaxHashInputBytes {
		b = b[:MaxHashInputBytes]
	}
	return b
}
