package types

import "errors"

var (
	ErrValidation      = errors.New("invalid input")
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrForbidden       = errors.New("action forbidden")
	ErrTooManyAttempts = errors.New("too many failed attempts")
)

// Response is the generic envelope for simple success/error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}
