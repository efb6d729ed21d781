package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionUserSignedUp AuditAction = "user_signed_up"
	AuditActionRoleUpdated  AuditAction = "role_updated"
	AuditActionUserDeleted  AuditAction = "user_deleted"
)

// AuditLog is an audit trail entry for changes made to a user profile
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Action     AuditAction     `json:"action" db:"action"`
	ActorID    string          `json:"actor_id" db:"actor_id"`
	ActorEmail string          `json:"actor_email" db:"actor_email"`
	TargetID   string          `json:"target_id" db:"target_id"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	RequestID  string          `json:"request_id" db:"request_id"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, targetID string) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		TargetID:  targetID,
		Timestamp: time.Now().UTC(),
	}
}

// WithActor sets who performed the action
func (a *AuditLog) WithActor(id, email string) *AuditLog {
	a.ActorID = id
	a.ActorEmail = email
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
