package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// AuditLogger records review decisions
type AuditLogger interface {
	LogSubmissionReviewed(ctx context.Context, reviewerID uuid.UUID, sub *models.Submission, from models.SubmissionStatus) error
}

// Controller applies reviewer decisions to submissions. Callers must have
// passed the kind's manage permission before reaching it.
type Controller struct {
	submissions repositories.SubmissionRepository
	audit       AuditLogger
	logger      *zap.Logger
	now         func() time.Time
}

// NewController creates a new Controller. audit may be nil.
func NewController(repos *repositories.Repositories, audit AuditLogger, logger *zap.Logger) *Controller {
	return &Controller{
		submissions: repos.Submissions,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

// ParseDecision accepts only the two terminal statuses a reviewer may set
func ParseDecision(s string) (models.SubmissionStatus, error) {
	status, err := models.ParseSubmissionStatus(s)
	if err != nil || status == models.SubmissionStatusPending {
		return "", services.ErrInvalidInput.
			WithMessage("decision must be %q or %q", models.SubmissionStatusApproved, models.SubmissionStatusRejected).
			WithDetail("decision", s)
	}
	return status, nil
}

// ReviewSubmission moves a pending submission to approved or rejected.
// Submissions already decided yield ErrInvalidTransition carrying their
// current status.
func (c *Controller) ReviewSubmission(
	ctx context.Context,
	kind models.SubmissionKind,
	submissionID uuid.UUID,
	decision models.SubmissionStatus,
	reviewerID uuid.UUID,
) (*models.Submission, error) {
	sub, err := c.load(ctx, kind, submissionID)
	if err != nil {
		return nil, err
	}

	if !sub.Status.CanTransitionTo(decision) {
		return nil, c.invalidTransition(sub, decision)
	}

	updated, err := c.submissions.UpdateStatus(ctx, kind, submissionID, sub.Status, decision, reviewerID, c.now())
	if err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			// another reviewer decided first
			current, loadErr := c.load(ctx, kind, submissionID)
			if loadErr != nil {
				return nil, loadErr
			}
			return nil, c.invalidTransition(current, decision)
		}
		c.logger.Error("failed to update submission status",
			zap.String("submission_id", submissionID.String()),
			zap.Error(err),
		)
		return nil, services.WrapInternal("failed to review submission", err)
	}

	if c.audit != nil {
		if err := c.audit.LogSubmissionReviewed(ctx, reviewerID, updated, sub.Status); err != nil {
			c.logger.Warn("failed to queue audit event", zap.Error(err))
		}
	}

	c.logger.Info("submission reviewed",
		zap.String("kind", string(kind)),
		zap.String("submission_id", submissionID.String()),
		zap.String("status", string(updated.Status)),
		zap.String("reviewer_id", reviewerID.String()),
	)
	return updated, nil
}

// ListPending returns the review queue for a kind, oldest first
func (c *Controller) ListPending(ctx context.Context, kind models.SubmissionKind, limit, offset int) ([]*models.Submission, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	subs, err := c.submissions.ListByStatus(ctx, kind, models.SubmissionStatusPending, limit, offset)
	if err != nil {
		c.logger.Error("failed to list pending submissions", zap.String("kind", string(kind)), zap.Error(err))
		return nil, services.WrapInternal("failed to list submissions", err)
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	return subs, nil
}

func (c *Controller) load(ctx context.Context, kind models.SubmissionKind, id uuid.UUID) (*models.Submission, error) {
	sub, err := c.submissions.GetByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSubmissionNotFound.
				WithDetail("kind", string(kind)).
				WithDetail("submission_id", id.String())
		}
		return nil, services.WrapInternal("failed to load submission", err)
	}
	return sub, nil
}

func (c *Controller) invalidTransition(sub *models.Submission, decision models.SubmissionStatus) error {
	c.logger.Warn("rejected status transition",
		zap.String("submission_id", sub.ID.String()),
		zap.String("from", string(sub.Status)),
		zap.String("to", string(decision)),
	)
	return services.ErrInvalidTransition.
		WithMessage("cannot move submission from %s to %s", sub.Status, decision).
		WithDetail("status", string(sub.Status))
}
