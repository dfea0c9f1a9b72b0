package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Action is the fixed vocabulary of auditable operations.
type Action string

const (
	ActionUserCreated        Action = "USER_CREATED"
	ActionUserApproved       Action = "USER_APPROVED"
	ActionUserRejected       Action = "USER_REJECTED"
	ActionUserSuspended      Action = "USER_SUSPENDED"
	ActionUserReactivated    Action = "USER_REACTIVATED"
	ActionUserRoleUpdated    Action = "USER_ROLE_UPDATED"
	ActionUserProfileUpdated Action = "USER_PROFILE_UPDATED"
	ActionUserDeleted        Action = "USER_DELETED"
	ActionUserPasswordReset  Action = "USER_PASSWORD_RESET"
	ActionSettingUpdated     Action = "SETTING_UPDATED"
)

// AuditEntry is one immutable record of a lifecycle transition or settings
// change. Entries are never updated or deleted once written.
type AuditEntry struct {
	ID               string         `dynamodbav:"id" json:"id"`
	Timestamp        string         `dynamodbav:"timestamp" json:"timestamp"`
	Action           Action         `dynamodbav:"action" json:"action"`
	PerformedBy      string         `dynamodbav:"performedBy" json:"performedBy"`
	AffectedResource string         `dynamodbav:"affectedResource" json:"affectedResource"`
	ResourceID       string         `dynamodbav:"resourceId,omitempty" json:"resourceId,omitempty"`
	Details          map[string]any `dynamodbav:"details,omitempty" json:"details,omitempty"`
}

// StripNilDetails removes nil detail values so the store never persists them.
func (e *AuditEntry) StripNilDetails() {
	for k, v := range e.Details {
		if v == nil {
			delete(e.Details, k)
		}
	}
}

const base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewAuditID generates a globally unique, time-ordered-ish entry id of the
// form "audit-<unix millis>-<random suffix>".
func NewAuditID() string {
	return fmt.Sprintf("audit-%d-%s", time.Now().UnixMilli(), randBase36(9))
}

// NewSettingID generates an id for a setting created without one.
func NewSettingID() string {
	return fmt.Sprintf("setting-%d-%s", time.Now().UnixMilli(), randBase36(9))
}

func randBase36(n int) string {
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(base36Chars))))
		if err != nil {
			panic(err)
		}
		out[i] = base36Chars[idx.Int64()]
	}
	return string(out)
}
