package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/repositories"
)

const profileColumns = `id, email, role, created_at, updated_at`

// ProfileRepository stores user profiles in a local SQLite file
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repositories.ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := row.Scan(&p.ID, &p.Email, &p.Role, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// Create inserts profile and returns a copy of the stored row.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	stored := *profile
	stored.CreatedAt = profile.CreatedAt.UTC()
	stored.UpdatedAt = profile.UpdatedAt.UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?)`,
		stored.ID, stored.Email, string(stored.Role), stored.CreatedAt, stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}
	return &stored, nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return p, nil
}

// UpdateRole returns (nil, nil) when no profile has the given id.
func (r *ProfileRepository) UpdateRole(ctx context.Context, id string, role models.Role, updatedAt time.Time) (*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE user_profiles SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), updatedAt.UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}

func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete user profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]*models.UserProfile, error) {
	return r.query(ctx, `SELECT `+profileColumns+` FROM user_profiles ORDER BY created_at DESC`)
}

func (r *ProfileRepository) ListByRole(ctx context.Context, role models.Role) ([]*models.UserProfile, error) {
	return r.query(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE role = ? ORDER BY created_at DESC`, string(role))
}

func (r *ProfileRepository) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

func (r *ProfileRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user profiles: %w", err)
	}
	defer rows.Close()

	out := []*models.UserProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
