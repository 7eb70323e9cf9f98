package types

import "time"

// User is the credential record. Hash fields never leave the process.
type User struct {
	ID                  int64     `json:"id" example:"1"`
	Username            string    `json:"username" example:"alice"`
	PasswordHash        string    `json:"-"`
	SecurityQuestion1   *string   `json:"security_question1,omitempty" example:"Ciudad natal?"`
	SecurityAnswer1Hash *string   `json:"-"`
	SecurityQuestion2   *string   `json:"security_question2,omitempty"`
	SecurityAnswer2Hash *string   `json:"-"`
	RoleID              *int64    `json:"role_id,omitempty" example:"2"`
	IsActive            bool      `json:"is_active" example:"true"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// SecurityQuestions returns the non-empty prompts in slot order.
func (u *User) SecurityQuestions() []string {
	questions := make([]string, 0, 2)
	for _, q := range []*string{u.SecurityQuestion1, u.SecurityQuestion2} {
		if q != nil && *q != "" {
			questions = append(questions, *q)
		}
	}
	return questions
}

// SecurityAnswerHashes returns the stored answer hashes in slot order.
func (u *User) SecurityAnswerHashes() []string {
	hashes := make([]string, 0, 2)
	for _, h := range []*string{u.SecurityAnswer1Hash, u.SecurityAnswer2Hash} {
		if h != nil && *h != "" {
			hashes = append(hashes, *h)
		}
	}
	return hashes
}

// CreateUserRequest is the body for registration and admin creation.
type CreateUserRequest struct {
	Username          string  `json:"username" example:"alice"`
	Password          string  `json:"password" example:"TestPass123!"`
	SecurityQuestion1 *string `json:"security_question1,omitempty"`
	SecurityAnswer1   *string `json:"security_answer1,omitempty"`
	SecurityQuestion2 *string `json:"security_question2,omitempty"`
	SecurityAnswer2   *string `json:"security_answer2,omitempty"`
	RoleID            *int64  `json:"role_id,omitempty"`
}

// UpdateUserRequest carries a partial update. Nil fields are left untouched.
type UpdateUserRequest struct {
	Username  *string `json:"username,omitempty"`
	RoleID    *int64  `json:"role_id,omitempty"`
	ClearRole bool    `json:"clear_role,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

// NewUserParams is what the store persists on creation; all secrets are already hashed.
type NewUserParams struct {
	Username            string
	PasswordHash        string
	SecurityQuestion1   *string
	SecurityAnswer1Hash *string
	SecurityQuestion2   *string
	SecurityAnswer2Hash *string
	RoleID              *int64
}

// UpdateUserParams mirrors UpdateUserRequest at the store boundary.
type UpdateUserParams struct {
	Username  *string
	RoleID    *int64
	ClearRole bool
	IsActive  *bool
}

// ListParams is the skip/limit pagination used by list endpoints.
type ListParams struct {
	Skip  int
	Limit int
}
