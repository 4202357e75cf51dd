package submission

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
	"go.uber.org/zap"
)

// AuditLogger records accepted submissions
type AuditLogger interface {
	LogSubmissionCreated(ctx context.Context, sub *models.Submission) error
}

// Service accepts new submissions after checking referenced entities, the
// canonical catalog and earlier submissions of the same natural key
type Service struct {
	submissions repositories.SubmissionRepository
	catalog     repositories.CatalogRepository
	audit       AuditLogger
	logger      *zap.Logger
}

// NewService creates a new submission Service. audit may be nil.
func NewService(repos *repositories.Repositories, audit AuditLogger, logger *zap.Logger) *Service {
	return &Service{
		submissions: repos.Submissions,
		catalog:     repos.Catalog,
		audit:       audit,
		logger:      logger,
	}
}

// strategy captures what differs between submission kinds.
// prepare validates and normalizes the payload, checks that referenced
// canonical entities exist and that the entry is not canonical already.
// naturalKey derives the duplicate-detection key from the prepared payload.
type strategy[P any] struct {
	kind       models.SubmissionKind
	prepare    func(ctx context.Context, payload *P) error
	naturalKey func(payload P) string
}

// submit runs the shared create workflow for one kind
func submit[P any](ctx context.Context, s *Service, st strategy[P], payload P, submitterID uuid.UUID) (*models.Submission, error) {
	if err := st.prepare(ctx, &payload); err != nil {
		if services.IsInternalError(err) {
			s.logger.Error("submission precheck failed", zap.String("kind", string(st.kind)), zap.Error(err))
		} else {
			s.logger.Warn("submission rejected",
				zap.String("kind", string(st.kind)),
				zap.String("submitter_id", submitterID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	key := st.naturalKey(payload)

	existing, err := s.submissions.FindByNaturalKey(ctx, st.kind, key)
	switch {
	case err == nil:
		return nil, s.conflict(existing, submitterID)
	case !errors.Is(err, repositories.ErrNotFound):
		s.logger.Error("failed to look up submission", zap.String("kind", string(st.kind)), zap.Error(err))
		return nil, services.WrapInternal("failed to look up submission", err)
	}

	sub, err := models.NewSubmission(st.kind, submitterID, key, payload)
	if err != nil {
		return nil, services.WrapInternal("failed to build submission", err)
	}

	if err := s.submissions.Create(ctx, sub); err != nil {
		if errors.Is(err, repositories.ErrUniqueViolation) {
			// lost a race with a concurrent submitter; report the winner
			winner, findErr := s.submissions.FindByNaturalKey(ctx, st.kind, key)
			if findErr != nil {
				return nil, services.ErrConflict.WithMessage("%s already submitted", st.kind).Wrap(err)
			}
			return nil, s.conflict(winner, submitterID)
		}
		s.logger.Error("failed to insert submission", zap.String("kind", string(st.kind)), zap.Error(err))
		return nil, services.WrapInternal("failed to create submission", err)
	}

	if s.audit != nil {
		if err := s.audit.LogSubmissionCreated(ctx, sub); err != nil {
			s.logger.Warn("failed to queue audit event", zap.Error(err))
		}
	}

	s.logger.Info("submission created",
		zap.String("kind", string(sub.Kind)),
		zap.String("submission_id", sub.ID.String()),
		zap.String("submitter_id", submitterID.String()),
	)
	return sub, nil
}

// conflict builds the error for an existing submission of the same natural
// key, carrying its current status
func (s *Service) conflict(existing *models.Submission, submitterID uuid.UUID) error {
	s.logger.Warn("duplicate submission",
		zap.String("kind", string(existing.Kind)),
		zap.String("existing_id", existing.ID.String()),
		zap.String("status", string(existing.Status)),
	)
	if existing.SubmitterID == submitterID {
		return services.ErrAlreadySubmittedBySelf.
			WithDetail("status", string(existing.Status)).
			WithDetail("submission_id", existing.ID.String())
	}
	return services.ErrAlreadySubmittedByOther.WithDetail("status", string(existing.Status))
}

// Submit dispatches on the payload type. payload must be a models.BrandPayload,
// models.PolishPayload or models.DupePayload matching kind.
func (s *Service) Submit(ctx context.Context, kind models.SubmissionKind, payload interface{}, submitterID uuid.UUID) (*models.Submission, error) {
	switch p := payload.(type) {
	case models.BrandPayload:
		if kind == models.SubmissionKindBrand {
			return s.SubmitBrand(ctx, submitterID, p)
		}
	case models.PolishPayload:
		if kind == models.SubmissionKindPolish {
			return s.SubmitPolish(ctx, submitterID, p)
		}
	case models.DupePayload:
		if kind == models.SubmissionKindDupe {
			return s.SubmitDupe(ctx, submitterID, p)
		}
	}
	return nil, services.ErrInvalidInput.WithMessage("payload %T does not match submission kind %q", payload, kind)
}

// SubmitBrand proposes a new brand
func (s *Service) SubmitBrand(ctx context.Context, submitterID uuid.UUID, payload models.BrandPayload) (*models.Submission, error) {
	return submit(ctx, s, s.brandStrategy(), payload, submitterID)
}

// SubmitPolish proposes a new polish for a canonical brand
func (s *Service) SubmitPolish(ctx context.Context, submitterID uuid.UUID, payload models.PolishPayload) (*models.Submission, error) {
	return submit(ctx, s, s.polishStrategy(), payload, submitterID)
}

// SubmitDupe claims that two canonical polishes are near-duplicates
func (s *Service) SubmitDupe(ctx context.Context, submitterID uuid.UUID, payload models.DupePayload) (*models.Submission, error) {
	return submit(ctx, s, s.dupeStrategy(), payload, submitterID)
}
