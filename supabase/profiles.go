package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joyofrisk/api/models"
)

const (
	profilesPath = "/rest/v1/user_profiles"
	auditPath    = "/rest/v1/audit_logs"
)

// ProfileStore implements repositories.ProfileRepository on PostgREST
type ProfileStore struct {
	client *Client
}

// NewProfileStore creates a new ProfileStore
func NewProfileStore(client *Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func eq(v string) string { return "eq." + v }

// Create inserts a profile and returns the stored row
func (s *ProfileStore) Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	var rows []*models.UserProfile
	err := s.client.do(ctx, request{
		method: http.MethodPost,
		path:   profilesPath,
		body:   []*models.UserProfile{profile},
		prefer: "return=representation",
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}
	if len(rows) == 0 {
		return profile, nil
	}
	return rows[0], nil
}

// GetByID returns the profile with id, or nil when absent
func (s *ProfileStore) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var rows []*models.UserProfile
	err := s.client.do(ctx, request{
		method: http.MethodGet,
		path:   profilesPath,
		query:  url.Values{"select": {"*"}, "id": {eq(id)}, "limit": {"1"}},
	}, &rows)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateRole sets role and updated_at, returning the updated row or nil when absent
func (s *ProfileStore) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error) {
	var rows []*models.UserProfile
	err := s.client.do(ctx, request{
		method: http.MethodPatch,
		path:   profilesPath,
		query:  url.Values{"id": {eq(id)}},
		body: map[string]interface{}{
			"role":       role,
			"updated_at": updatedAt.UTC(),
		},
		prefer: "return=representation",
	}, &rows)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Delete removes the profile with id. Deleting an absent row is not an error.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	err := s.client.do(ctx, request{
		method: http.MethodDelete,
		path:   profilesPath,
		query:  url.Values{"id": {eq(id)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	return nil
}

// List returns all profiles, newest first
func (s *ProfileStore) List(ctx context.Context) ([]*models.UserProfile, error) {
	return s.list(ctx, url.Values{"select": {"*"}, "order": {"created_at.desc"}})
}

// ListByRole returns the profiles holding role, newest first
func (s *ProfileStore) ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error) {
	return s.list(ctx, url.Values{"select": {"*"}, "role": {eq(string(role))}, "order": {"created_at.desc"}})
}

func (s *ProfileStore) list(ctx context.Context, query url.Values) ([]*models.UserProfile, error) {
	rows := []*models.UserProfile{}
	err := s.client.do(ctx, request{
		method: http.MethodGet,
		path:   profilesPath,
		query:  query,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	return rows, nil
}

// HealthCheck issues a minimal read against the profile table
func (s *ProfileStore) HealthCheck(ctx context.Context) error {
	return s.client.pingTable(ctx, profilesPath)
}

// AuditStore implements repositories.AuditRepository on PostgREST
type AuditStore struct {
	client *Client
}

// NewAuditStore creates a new AuditStore
func NewAuditStore(client *Client) *AuditStore {
	return &AuditStore{client: client}
}

// Insert appends an audit entry
func (s *AuditStore) Insert(ctx context.Context, log *models.AuditLog) error {
	err := s.client.do(ctx, request{
		method: http.MethodPost,
		path:   auditPath,
		body:   log,
		prefer: "return=minimal",
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// HealthCheck issues a minimal read against the audit table. A project
// without supabase/schema.sql applied reports PGRST205 here.
func (s *AuditStore) HealthCheck(ctx context.Context) error {
	return s.client.pingTable(ctx, auditPath)
}

// ListByTarget returns the most recent entries about targetID
func (s *AuditStore) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	query := url.Values{
		"select":    {"*"},
		"target_id": {eq(targetID)},
		"order":     {"timestamp.desc"},
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows := []*models.AuditLog{}
	err := s.client.do(ctx, request{method: http.MethodGet, path: auditPath, query: query}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return rows, nil
}

// pingTable reads at most one id from the table at path
func (c *Client) pingTable(ctx context.Context, path string) error {
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   path,
		query:  url.Values{"select": {"id"}, "limit": {"1"}},
	}, nil)
	if err != nil {
		return fmt.Errorf("supabase health check on %s failed: %w", strings.TrimPrefix(path, "/rest/v1/"), err)
	}
	return nil
}
