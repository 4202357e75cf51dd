package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
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
			id, actor_id, action, resource_type, resource_id, details, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.Details,
		log.RequestID,
		log.Timestamp,
	)
	if err != nil {
		return translateError(err, "failed to insert audit log")
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// ListByResource retrieves audit logs for one resource, newest first
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, actor_id, action, resource_type, resource_id,
		       COALESCE(details, '{}'::jsonb), COALESCE(request_id, ''), timestamp
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY timestamp DESC
		LIMIT $3
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, resourceType, resourceID, limit)
	if err != nil {
		return nil, translateError(err, "failed to list audit logs")
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		if err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.Details,
			&log.RequestID,
			&log.Timestamp,
		); err != nil {
			return nil, translateError(err, "failed to scan audit log")
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate audit logs")
	}

	return logs, nil
}
