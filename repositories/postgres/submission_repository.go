package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// SubmissionRepository implements the repositories.SubmissionRepository interface
type SubmissionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a new submission repository
func NewSubmissionRepository(db *DB, logger *zap.Logger) repositories.SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

const submissionColumns = `id, kind, submitter_id, natural_key, payload, status, reviewed_by, reviewed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*models.Submission, error) {
	sub := &models.Submission{}
	err := row.Scan(
		&sub.ID,
		&sub.Kind,
		&sub.SubmitterID,
		&sub.NaturalKey,
		&sub.Payload,
		&sub.Status,
		&sub.ReviewedBy,
		&sub.ReviewedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}

// Create inserts a new submission. The (kind, natural_key) constraint
// rejects concurrent duplicates with ErrUniqueViolation.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		sub.ID,
		sub.Kind,
		sub.SubmitterID,
		sub.NaturalKey,
		sub.Payload,
		sub.Status,
		sub.ReviewedBy,
		sub.ReviewedAt,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		return translateError(err, "failed to create %s submission", sub.Kind)
	}

	r.logger.Debug("submission created",
		zap.String("id", sub.ID.String()),
		zap.String("kind", string(sub.Kind)),
		zap.String("submitter_id", sub.SubmitterID.String()))
	return nil
}

// GetByID retrieves a submission of the given kind
func (r *SubmissionRepository) GetByID(ctx context.Context, kind models.SubmissionKind, id uuid.UUID) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE kind = $1 AND id = $2`

	sub, err := scanSubmission(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, kind, id))
	if err != nil {
		return nil, translateError(err, "failed to get %s submission %s", kind, id)
	}
	return sub, nil
}

// FindByNaturalKey retrieves the submission holding a natural key
func (r *SubmissionRepository) FindByNaturalKey(ctx context.Context, kind models.SubmissionKind, naturalKey string) (*models.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE kind = $1 AND natural_key = $2`

	sub, err := scanSubmission(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, kind, naturalKey))
	if err != nil {
		return nil, translateError(err, "failed to find %s submission by key", kind)
	}
	return sub, nil
}

// UpdateStatus applies a status change only if the row is still in `from`
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, kind models.SubmissionKind, id uuid.UUID, from, to models.SubmissionStatus, reviewerID uuid.UUID, at time.Time) (*models.Submission, error) {
	query := `
		UPDATE submissions
		SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3
		WHERE kind = $4 AND id = $5 AND status = $6
		RETURNING ` + submissionColumns

	executor := GetExecutor(ctx, r.db)
	sub, err := scanSubmission(executor.QueryRowContext(ctx, query, to, reviewerID, at, kind, id, from))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrStaleState
	}
	if err != nil {
		return nil, translateError(err, "failed to update %s submission %s", kind, id)
	}

	r.logger.Debug("submission status updated",
		zap.String("id", id.String()),
		zap.String("kind", string(kind)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return sub, nil
}

// ListByStatus retrieves submissions of a kind in a status, oldest first
func (r *SubmissionRepository) ListByStatus(ctx context.Context, kind models.SubmissionKind, status models.SubmissionStatus, limit, offset int) ([]*models.Submission, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM submissions
		WHERE kind = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, kind, status, limit, offset)
	if err != nil {
		return nil, translateError(err, "failed to list %s submissions", kind)
	}
	defer rows.Close()

	var subs []*models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan submission")
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to iterate submissions")
	}

	return subs, nil
}
