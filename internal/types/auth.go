package types

// LoginRequest represents the expected JSON body for login.
type LoginRequest struct {
	Username string `json:"username" example:"alice"`
	Password string `json:"password" example:"TestPass123!"`
}

// RoleRef is the short role description returned with a login.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoginResponse represents the successful JSON response after login.
type LoginResponse struct {
	AccessToken string   `json:"access_token" example:"eyJhbGciOiJI..."`
	TokenType   string   `json:"token_type" example:"bearer"`
	UserID      int64    `json:"user_id" example:"1"`
	Username    string   `json:"username" example:"alice"`
	Role        *RoleRef `json:"role"`
	Message     string   `json:"message" example:"Login successful"`
}

// ChangePasswordRequest is the body for the authenticated self-service change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type RecoveryStartRequest struct {
	Username string `json:"username" example:"alice"`
}

type SecurityQuestionsResponse struct {
	Username  string   `json:"username"`
	Questions []string `json:"questions"`
}

// VerifyAnswersRequest carries answers in the same order as the questions.
type VerifyAnswersRequest struct {
	Username string   `json:"username"`
	Answers  []string `json:"answers"`
}

type VerifyAnswersResponse struct {
	ResetToken string `json:"reset_token"`
	Message    string `json:"message"`
}

// ResetPasswordRequest is the last recovery step. Username is only consulted
// for the test-mode bootstrap token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	Username    string `json:"username,omitempty"`
	NewPassword string `json:"new_password"`
}

// RequestMeta is the caller context attached to audit events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}
