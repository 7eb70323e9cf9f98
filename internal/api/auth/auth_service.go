package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/app/observability/metrics"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api/audit"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/security"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgAnswersIncorrect   = "Security answers are incorrect"
	msgUserNotFound       = "User not found"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService covers session issuance and the password recovery flow.
type AuthService interface {
	Login(ctx context.Context, req types.LoginRequest) (*types.LoginResponse, error)
	Logout(ctx context.Context, user *types.User)
	// CurrentUser resolves an access token to an active user.
	CurrentUser(ctx context.Context, token string) (*types.User, error)
	ChangePassword(ctx context.Context, user *types.User, req types.ChangePasswordRequest) error

	// RecoveryStart reveals the user's security questions in slot order.
	RecoveryStart(ctx context.Context, req types.RecoveryStartRequest) (*types.SecurityQuestionsResponse, error)
	// RecoveryVerify checks the ordered answers and issues a reset token.
	RecoveryVerify(ctx context.Context, req types.VerifyAnswersRequest) (*types.VerifyAnswersResponse, error)
	// RecoveryReset consumes a reset token and stores the new password.
	RecoveryReset(ctx context.Context, req types.ResetPasswordRequest) error
}

// UserStore is the part of the user repository the auth flows need.
type UserStore interface {
	GetUserByID(ctx context.Context, userID int64) (*types.User, error)
	GetUserByUsername(ctx context.Context, username string) (*types.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}

// RoleResolver yields the short role description attached to a login.
type RoleResolver interface {
	RoleRef(ctx context.Context, roleID *int64) (*types.RoleRef, error)
}

type Options struct {
	// UniformLoginErrors answers 401 for unknown usernames instead of 404.
	UniformLoginErrors bool
	// BootstrapResetToken, when non-empty, is accepted by RecoveryReset in
	// place of a signed token. Only set it in test mode.
	BootstrapResetToken string
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	users    UserStore
	roles    RoleResolver
	hasher   *security.Hasher
	tokens   *security.TokenIssuer
	notifier audit.Notifier
	limiter  *AttemptLimiter
	opts     Options
}

func NewAuthService(
	users UserStore,
	roles RoleResolver,
	hasher *security.Hasher,
	tokens *security.TokenIssuer,
	notifier audit.Notifier,
	limiter *AttemptLimiter,
	opts Options,
	logger *slog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		users:    users,
		roles:    roles,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		limiter:  limiter,
		opts:     opts,
	}
}

func (s *AuthServiceImpl) audit(ctx context.Context, actorID *int64, eventType types.AuditEventType, description string, details map[string]any) {
	meta := appMiddleware.RequestMetaFromContext(ctx)
	if meta.UserAgent != "" {
		if details == nil {
			details = map[string]any{}
		}
		details["user_agent"] = meta.UserAgent
	}
	s.notifier.Notify(ctx, types.AuditEvent{
		ActorID:     actorID,
		EventType:   eventType,
		Description: description,
		IPAddress:   meta.IPAddress,
		Details:     details,
	})
}

func (s *AuthServiceImpl) Login(ctx context.Context, req types.LoginRequest) (*types.LoginResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("username", req.Username))
	l.DebugContext(ctx, "Login attempt")

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		span.SetStatus(codes.Error, "missing credentials")
		return nil, api.NewPublicError(types.ErrValidation, "Username and password are required")
	}

	key := loginKey(req.Username)
	if s.limiter.Blocked(key) {
		l.WarnContext(ctx, "Login blocked by attempt limiter")
		metrics.Get().RecordLogin(ctx, "locked")
		s.audit(ctx, nil, types.AuditLoginFail, "Login blocked after repeated failures",
			map[string]any{"username": req.Username, "reason": "locked"})
		span.SetStatus(codes.Error, "locked")
		return nil, types.ErrTooManyAttempts
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "user lookup failed")
			return nil, fmt.Errorf("error fetching user: %w", err)
		}
		s.limiter.Fail(key)
		l.WarnContext(ctx, "Login for unknown user")
		metrics.Get().RecordLogin(ctx, "unknown_user")
		s.audit(ctx, nil, types.AuditLoginFail, "Login attempt for unknown user",
			map[string]any{"username": req.Username, "reason": "unknown_user"})
		span.SetStatus(codes.Error, "unknown user")
		if s.opts.UniformLoginErrors {
			return nil, api.NewPublicError(types.ErrUnauthenticated, msgInvalidCredentials)
		}
		return nil, api.NewPublicError(types.ErrNotFound, msgUserNotFound)
	}

	// An inactive account still costs a hash comparison.
	passwordOK := s.hasher.Verify(req.Password, user.PasswordHash)
	if !passwordOK || !user.IsActive {
		reason := "bad_password"
		if passwordOK {
			reason = "inactive"
		}
		s.limiter.Fail(key)
		l.WarnContext(ctx, "Login rejected", slog.String("reason", reason))
		metrics.Get().RecordLogin(ctx, reason)
		s.audit(ctx, &user.ID, types.AuditLoginFail, "Login rejected",
			map[string]any{"username": user.Username, "reason": reason})
		span.SetStatus(codes.Error, reason)
		return nil, api.NewPublicError(types.ErrUnauthenticated, msgInvalidCredentials)
	}

	roleRef, err := s.roles.RoleRef(ctx, user.RoleID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve role", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "role lookup failed")
		return nil, fmt.Errorf("error resolving role: %w", err)
	}

	var tokenOpts []security.TokenOption
	if roleRef != nil {
		tokenOpts = append(tokenOpts, security.WithRole(roleRef.Name))
	}
	token, err := s.tokens.IssueAccessToken(user.ID, tokenOpts...)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue access token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		return nil, fmt.Errorf("error issuing access token: %w", err)
	}

	s.limiter.Reset(key)
	metrics.Get().RecordLogin(ctx, "success")
	s.audit(ctx, &user.ID, types.AuditLoginSuccess, "User logged in",
		map[string]any{"username": user.Username})

	l.InfoContext(ctx, "Login successful", slog.Int64("userID", user.ID))
	span.SetStatus(codes.Ok, "Login successful")
	return &types.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		UserID:      user.ID,
		Username:    user.Username,
		Role:        roleRef,
		Message:     "Login successful",
	}, nil
}

// Logout only records the event. Issued tokens stay valid until they expire.
func (s *AuthServiceImpl) Logout(ctx context.Context, user *types.User) {
	if user == nil {
		return
	}
	s.logger.InfoContext(ctx, "User logged out", slog.String("method", "Logout"), slog.Int64("userID", user.ID))
	s.audit(ctx, &user.ID, types.AuditLogout, "User logged out",
		map[string]any{"username": user.Username})
}

func (s *AuthServiceImpl) CurrentUser(ctx context.Context, token string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "CurrentUser")
	defer span.End()

	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		span.SetStatus(codes.Error, "invalid subject")
		return nil, security.ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "unknown subject")
			return nil, security.ErrInvalidToken
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "user lookup failed")
		return nil, fmt.Errorf("error fetching current user: %w", err)
	}
	if !user.IsActive {
		s.logger.WarnContext(ctx, "Token presented for inactive user",
			slog.String("method", "CurrentUser"), slog.Int64("userID", user.ID))
		span.SetStatus(codes.Error, "inactive user")
		return nil, api.NewPublicError(types.ErrUnauthenticated, "User is inactive")
	}
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	return user, nil
}

func (s *AuthServiceImpl) ChangePassword(ctx context.Context, user *types.User, req types.ChangePasswordRequest) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "ChangePassword", trace.WithAttributes(
		attribute.Int64("user.id", user.ID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "ChangePassword"), slog.Int64("userID", user.ID))

	if req.CurrentPassword == "" || req.NewPassword == "" {
		span.SetStatus(codes.Error, "missing fields")
		return api.NewPublicError(types.ErrValidation, "current_password and new_password are required")
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		l.WarnContext(ctx, "Current password mismatch")
		span.SetStatus(codes.Error, "bad current password")
		return api.NewPublicError(types.ErrUnauthenticated, "Current password is incorrect")
	}
	if err := security.ValidatePasswordPolicy(req.NewPassword); err != nil {
		l.WarnContext(ctx, "New password rejected by policy", slog.String("rule", security.PolicyRule(err)))
		span.SetStatus(codes.Error, "password policy")
		return err
	}

	if err := s.storePassword(ctx, user.ID, req.NewPassword); err != nil {
		l.ErrorContext(ctx, "Failed to update password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	s.audit(ctx, &user.ID, types.AuditPasswordChange, "Password changed by user",
		map[string]any{"username": user.Username})
	l.InfoContext(ctx, "Password changed")
	span.SetStatus(codes.Ok, "Password changed")
	return nil
}

func (s *AuthServiceImpl) storePassword(ctx context.Context, userID int64, password string) error {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, digest); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// activeUser treats deactivated accounts as absent.
func (s *AuthServiceImpl) activeUser(ctx context.Context, username string) (*types.User, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, api.NewPublicError(types.ErrNotFound, msgUserNotFound)
	}
	return user, nil
}

func (s *AuthServiceImpl) RecoveryStart(ctx context.Context, req types.RecoveryStartRequest) (*types.SecurityQuestionsResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RecoveryStart", trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RecoveryStart"), slog.String("username", req.Username))

	if strings.TrimSpace(req.Username) == "" {
		return nil, api.NewPublicError(types.ErrValidation, "Username is required")
	}

	user, err := s.activeUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Recovery requested for unknown user")
			metrics.Get().RecordRecovery(ctx, "start", "unknown_user")
			s.audit(ctx, nil, types.AuditRecoveryStartFail, "Recovery requested for unknown user",
				map[string]any{"username": req.Username})
			span.SetStatus(codes.Error, "unknown user")
			return nil, api.NewPublicError(types.ErrNotFound, msgUserNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	questions := user.SecurityQuestions()
	metrics.Get().RecordRecovery(ctx, "start", "success")
	s.audit(ctx, &user.ID, types.AuditRecoveryStart, "Security questions requested",
		map[string]any{"username": user.Username, "questions": len(questions)})
	l.InfoContext(ctx, "Security questions revealed", slog.Int("count", len(questions)))
	return &types.SecurityQuestionsResponse{
		Username:  user.Username,
		Questions: questions,
	}, nil
}

func (s *AuthServiceImpl) RecoveryVerify(ctx context.Context, req types.VerifyAnswersRequest) (*types.VerifyAnswersResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RecoveryVerify", trace.WithAttributes(
		attribute.String("user.username", req.Username),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "RecoveryVerify"), slog.String("username", req.Username))

	if strings.TrimSpace(req.Username) == "" {
		return nil, api.NewPublicError(types.ErrValidation, "Username is required")
	}
	key := recoveryKey(req.Username)
	if s.limiter.Blocked(key) {
		l.WarnContext(ctx, "Recovery verify blocked by attempt limiter")
		metrics.Get().RecordRecovery(ctx, "verify", "locked")
		span.SetStatus(codes.Error, "locked")
		return nil, types.ErrTooManyAttempts
	}

	fail := func(actorID *int64, reason string) error {
		s.limiter.Fail(key)
		l.WarnContext(ctx, "Security answers rejected", slog.String("reason", reason))
		metrics.Get().RecordRecovery(ctx, "verify", "rejected")
		s.audit(ctx, actorID, types.AuditRecoveryVerifyFail, "Security answers rejected",
			map[string]any{"username": req.Username, "reason": reason})
		span.SetStatus(codes.Error, "answers rejected")
		return api.NewPublicError(types.ErrUnauthenticated, msgAnswersIncorrect)
	}

	user, err := s.activeUser(ctx, req.Username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fail(nil, "unknown_user")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("error fetching user: %w", err)
	}

	hashes := user.SecurityAnswerHashes()
	// users without questions, the bootstrap admin included, cannot self-recover
	if len(hashes) == 0 || len(req.Answers) != len(hashes) {
		return nil, fail(&user.ID, "answer_count")
	}
	ok := true
	for i, digest := range hashes {
		// every slot is checked so timing does not reveal which one failed
		if !s.hasher.VerifyAnswer(req.Answers[i], digest) {
			ok = false
		}
	}
	if !ok {
		return nil, fail(&user.ID, "mismatch")
	}

	token, err := s.tokens.IssueResetToken(user.Username)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue reset token", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("error issuing reset token: %w", err)
	}

	s.limiter.Reset(key)
	metrics.Get().RecordRecovery(ctx, "verify", "success")
	s.audit(ctx, &user.ID, types.AuditRecoveryVerify, "Security answers verified",
		map[string]any{"username": user.Username})
	l.InfoContext(ctx, "Security answers verified")
	span.SetStatus(codes.Ok, "verified")
	return &types.VerifyAnswersResponse{
		ResetToken: token,
		Message:    "Verification successful",
	}, nil
}

func (s *AuthServiceImpl) RecoveryReset(ctx context.Context, req types.ResetPasswordRequest) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RecoveryReset")
	defer span.End()

	l := s.logger.With(slog.String("method", "RecoveryReset"))

	username, bootstrap, err := s.resetSubject(req)
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			return err
		}
		l.WarnContext(ctx, "Reset token rejected")
		metrics.Get().RecordRecovery(ctx, "reset", "invalid_token")
		s.audit(ctx, nil, types.AuditPasswordResetFail, "Password reset with invalid token", nil)
		span.SetStatus(codes.Error, "invalid token")
		return err
	}
	l = l.With(slog.String("username", username))
	span.SetAttributes(attribute.String("user.username", username))

	if err := security.ValidatePasswordPolicy(req.NewPassword); err != nil {
		l.WarnContext(ctx, "New password rejected by policy", slog.String("rule", security.PolicyRule(err)))
		span.SetStatus(codes.Error, "password policy")
		return err
	}

	user, err := s.activeUser(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			metrics.Get().RecordRecovery(ctx, "reset", "unknown_user")
			s.audit(ctx, nil, types.AuditPasswordResetFail, "Password reset for unknown user",
				map[string]any{"username": username})
			span.SetStatus(codes.Error, "unknown user")
			return api.NewPublicError(types.ErrNotFound, msgUserNotFound)
		}
		span.RecordError(err)
		return fmt.Errorf("error fetching user: %w", err)
	}

	if err := s.storePassword(ctx, user.ID, req.NewPassword); err != nil {
		l.ErrorContext(ctx, "Failed to reset password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}

	metrics.Get().RecordRecovery(ctx, "reset", "success")
	s.audit(ctx, &user.ID, types.AuditPasswordReset, "Password reset via security questions",
		map[string]any{"username": user.Username, "bootstrap": bootstrap})
	l.InfoContext(ctx, "Password reset", slog.Bool("bootstrap", bootstrap))
	span.SetStatus(codes.Ok, "Password reset")
	return nil
}

// resetSubject resolves the username a reset applies to.
func (s *AuthServiceImpl) resetSubject(req types.ResetPasswordRequest) (string, bool, error) {
	if s.opts.BootstrapResetToken != "" &&
		subtle.ConstantTimeCompare([]byte(req.Token), []byte(s.opts.BootstrapResetToken)) == 1 {
		if strings.TrimSpace(req.Username) == "" {
			return "", false, api.NewPublicError(types.ErrValidation, "Username is required with the bootstrap token")
		}
		return req.Username, true, nil
	}
	username, err := s.tokens.VerifyResetToken(req.Token)
	if err != nil {
		return "", false, api.NewPublicError(err, "Invalid or expired token")
	}
	return username, false, nil
}
