package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/joyofrisk/api/models"
	"github.com/joyofrisk/api/repositories"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, action, actor_id, actor_email, target_id, details,
			request_id, ip_address, user_agent, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.Action,
		log.ActorID,
		log.ActorEmail,
		log.TargetID,
		details,
		log.RequestID,
		log.IPAddress,
		log.UserAgent,
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// ListByTarget retrieves audit logs about a user, most recent first
func (r *AuditRepository) ListByTarget(ctx context.Context, targetID string, limit int) ([]*models.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, action, actor_id, actor_email, target_id, details,
		       request_id, ip_address, user_agent, timestamp
		FROM audit_logs
		WHERE target_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log := &models.AuditLog{}
		var actorID, actorEmail, requestID, ipAddress, userAgent sql.NullString
		var details []byte
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
		if len(details) > 0 {
			log.Details = details
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return logs, nil
}
