package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/repositories"
)

// AuditRepository stores audit entries next to the profiles
type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) repositories.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var details interface{}
	if len(log.Details) > 0 {
		details = string(log.Details)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, action, actor_id, actor_email, target_id, details,
			request_id, ip_address, user_agent, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID.String(),
		string(log.Action),
		log.ActorID,
		log.ActorEmail,
		log.TargetID,
		details,
		log.RequestID,
		log.IPAddress,
		log.UserAgent,
		log.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, actor_id, actor_email, target_id, details,
		       request_id, ip_address, user_agent, timestamp
		FROM audit_logs
		WHERE target_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log := &models.AuditLog{}
		var actorID, actorEmail, details, requestID, ipAddress, userAgent sql.NullString
		if err := rows.Scan(
			&log.ID,
			&log.Action,
			&actorID,
			&actorEmail,
			&log.TargetID,
			&details,
			&requestID,
			&ipAddress,
			&userAgent,
			&log.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.ActorID = actorID.String
		log.ActorEmail = actorEmail.String
		log.RequestID = requestID.String
		log.IPAddress = ipAddress.String
		log.UserAgent = userAgent.String
		log.Timestamp = log.Timestamp.UTC()
		if details.Valid && details.String != "" {
			log.Details = []byte(details.String)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// NewRepositories opens path and returns both stores over one connection pool
func NewRepositories(path string) (*repositories.Repositories, *sql.DB, error) {
	db, err := Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	return &repositories.Repositories{
		Profiles:  NewProfileRepository(db),
		AuditLogs: NewAuditRepository(db),
	}, db, nil
}
