package repositories

import (
	"context"
	"time"

	"github.com/joyofrisk/api/models"
)

// ProfileRepository handles user profile data operations.
// Lookups of a missing row return (nil, nil).
type ProfileRepository interface {
	// Create inserts a new profile and returns the stored row
	Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)

	// GetByID retrieves a profile by user ID
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)

	// UpdateRole changes a profile's role and stamps updated_at
	UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error)

	// Delete removes a profile; deleting a missing row is not an error
	Delete(ctx context.Context, id string) error

	// List retrieves all profiles, newest first
	List(ctx context.Context) ([]*models.UserProfile, error)

	// ListByRole retrieves profiles holding role, newest first
	ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error)

	// HealthCheck verifies the store is reachable
	HealthCheck(ctx context.Context) error
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// ListByTarget retrieves the most recent entries about a user
	ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error)
}

// Repositories holds the active store implementations
type Repositories struct {
	Profiles  ProfileRepository
	AuditLogs AuditRepository
}
