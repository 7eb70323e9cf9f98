package auth

import (
	"log/slog"
	"net/http"

	appMiddleware "github.com/FACorreiaa/go-logistics-backoffice/app/middleware"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/api"
	"github.com/FACorreiaa/go-logistics-backoffice/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Login(w http.ResponseWriter, r *http.Request)
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	RecoveryStart(w http.ResponseWriter, r *http.Request)
	RecoveryVerify(w http.ResponseWriter, r *http.Request)
	RecoveryReset(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary      Login
// @Description  Verifies credentials and returns a bearer access token with the user's role.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body types.LoginRequest true "Credentials"
// @Success      200 {object} types.LoginResponse
// @Failure      400 {object} types.Response "Missing fields"
// @Failure      401 {object} types.Response "Invalid credentials"
// @Failure      404 {object} types.Response "User not found"
// @Failure      429 {object} types.Response "Too many failed attempts"
// @Router       /users/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode login request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.authService.Login(ctx, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Logout godoc
// @Summary      Logout
// @Description  Records the logout. The token stays valid until it expires.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.Response
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /users/logout [post]
func (h *HandlerImpl) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := appMiddleware.UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.authService.Logout(r.Context(), user)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Logged out"})
}

// Me godoc
// @Summary      Current User
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.User
// @Failure      401 {object} types.Response "Unauthorized"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := appMiddleware.UserFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, user)
}

// ChangePassword godoc
// @Summary      Change Password
// @Description  Self-service change; requires the current password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.ChangePasswordRequest true "Passwords"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response "Password policy violation"
// @Failure      401 {object} types.Response "Current password is incorrect"
// @Security     BearerAuth
// @Router       /users/me/password [put]
func (h *HandlerImpl) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "ChangePassword"))

	user, ok := appMiddleware.UserFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req types.ChangePasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ChangePassword(ctx, user, req); err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password updated"})
}

// RecoveryStart godoc
// @Summary      Start Password Recovery
// @Description  Returns the user's security questions in slot order.
// @Tags         Recovery
// @Accept       json
// @Produce      json
// @Param        body body types.RecoveryStartRequest true "Username"
// @Success      200 {object} types.SecurityQuestionsResponse
// @Failure      404 {object} types.Response "User not found"
// @Router       /users/recovery/start [post]
func (h *HandlerImpl) RecoveryStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RecoveryStart"))

	var req types.RecoveryStartRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.authService.RecoveryStart(ctx, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// RecoveryVerify godoc
// @Summary      Verify Security Answers
// @Description  Answers must be given in the order of the questions. Returns a short-lived reset token.
// @Tags         Recovery
// @Accept       json
// @Produce      json
// @Param        body body types.VerifyAnswersRequest true "Answers"
// @Success      200 {object} types.VerifyAnswersResponse
// @Failure      401 {object} types.Response "Security answers are incorrect"
// @Failure      429 {object} types.Response "Too many failed attempts"
// @Router       /users/recovery/verify [post]
func (h *HandlerImpl) RecoveryVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RecoveryVerify"))

	var req types.VerifyAnswersRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.authService.RecoveryVerify(ctx, req)
	if err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// RecoveryReset godoc
// @Summary      Reset Password
// @Tags         Recovery
// @Accept       json
// @Produce      json
// @Param        body body types.ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} types.Response
// @Failure      400 {object} types.Response "Password policy violation"
// @Failure      401 {object} types.Response "Invalid or expired token"
// @Failure      404 {object} types.Response "User not found"
// @Router       /users/recovery/reset [post]
func (h *HandlerImpl) RecoveryReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("HandlerImpl", "RecoveryReset"))

	var req types.ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.RecoveryReset(ctx, req); err != nil {
		api.WriteServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Password updated"})
}
