package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions emitted by the auth core.
const (
	ActionLogin                = "auth.login"
	ActionTwoFactorVerify      = "auth.2fa.verify"
	ActionBackupCodeUsed       = "auth.2fa.backup_code_used"
	ActionRefresh              = "auth.refresh"
	ActionRefreshReuseDetected = "auth.refresh_reuse_detected"
	ActionLogout               = "auth.logout"
	ActionRevokeAll            = "auth.sessions.revoke_all"
	ActionTwoFactorEnroll      = "auth.2fa.enroll"
	ActionTwoFactorConfirm     = "auth.2fa.confirm"
	ActionTwoFactorDisable     = "auth.2fa.disable"
	ActionBackupCodesRegen     = "auth.2fa.backup_codes_regenerated"
	ActionAccountDeactivated   = "auth.account.deactivated"
)

// Audit statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// AuditEvent is an append-only security event handed to the audit sink.
type AuditEvent struct {
	ID        string            `json:"id"`
	AccountID string            `json:"accountId,omitempty"`
	Action    string            `json:"action"`
	Resource  string            `json:"resource"`
	Status    string            `json:"status"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"userAgent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewAuditEvent stamps an event with a fresh id.
func NewAuditEvent(action, status, accountID string, origin Origin, at time.Time) AuditEvent {
	return AuditEvent{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		Resource:  "session",
		Status:    status,
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
		Timestamp: at.UTC(),
	}
}

// With returns a copy of e with the metadata key set.
func (e AuditEvent) With(key, value string) AuditEvent {
	m := make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		m[k] = v
	}
	m[key] = value
	e.Metadata = m
	return e
}
