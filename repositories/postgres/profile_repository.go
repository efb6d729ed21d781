package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/repositories"
)

const profileColumns = `id, email, role, created_at, updated_at`

// ProfileRepository implements the repositories.ProfileRepository interface
type ProfileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB, logger *zap.Logger) repositories.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	p := &models.UserProfile{}
	if err := row.Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	query := `
		INSERT INTO user_profiles (id, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + profileColumns

	created, err := scanProfile(r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.Email,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	r.logger.Debug("user profile created", zap.String("id", created.ID), zap.String("role", string(created.Role)))
	return created, nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return p, nil
}

// UpdateRole updates a profile's role
func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error) {
	query := `
		UPDATE user_profiles
		SET role = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id, role, updatedAt))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}

	r.logger.Debug("user role updated", zap.String("id", id), zap.String("role", string(role)))
	return p, nil
}

// Delete deletes a profile
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	return nil
}

// List retrieves all profiles, newest first
func (r *ProfileRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles ORDER BY created_at DESC`
	return r.query(ctx, query)
}

// ListByRole retrieves profiles with the given role, newest first
func (r *ProfileRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE role = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, role)
}

// HealthCheck verifies the database is reachable
func (r *ProfileRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

func (r *ProfileRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	defer rows.Close()

	profiles := []*models.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user profiles: %w", err)
	}
	return profiles, nil
}
