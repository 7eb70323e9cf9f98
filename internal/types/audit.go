package types

import (
	"time"

	"github.com/google/uuid"
)

type AuditEventType string

const (
	AuditLoginSuccess       AuditEventType = "login_success"
	AuditLoginFail          AuditEventType = "login_fail"
	AuditLogout             AuditEventType = "logout"
	AuditPasswordReset      AuditEventType = "PASSWORD_RESET"
	AuditPasswordResetFail  AuditEventType = "PASSWORD_RESET_FAIL"
	AuditPasswordChange     AuditEventType = "PASSWORD_CHANGE"
	AuditRecoveryStart      AuditEventType = "recovery_start"
	AuditRecoveryStartFail  AuditEventType = "recovery_start_fail"
	AuditRecoveryVerify     AuditEventType = "recovery_verify"
	AuditRecoveryVerifyFail AuditEventType = "recovery_verify_fail"
)

// AuditEvent is one append-only security record.
type AuditEvent struct {
	EventID     uuid.UUID      `json:"event_id"`
	ActorID     *int64         `json:"actor_id"`
	EventType   AuditEventType `json:"event_type"`
	Description string         `json:"description"`
	IPAddress   string         `json:"ip_address"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
