package submission

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"github.com/polishfinder/backend/services"
)

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// BrandKey is the natural key of a brand submission
func BrandKey(name string) string {
	return normalizeName(name)
}

// PolishKey is the natural key of a polish submission
func PolishKey(brandID uuid.UUID, name string) string {
	return brandID.String() + ":" + normalizeName(name)
}

// DupeKey is the natural key of a dupe submission; it ignores pair order
func DupeKey(a, b uuid.UUID) string {
	first, second := models.OrderPolishPair(a, b)
	return first.String() + ":" + second.String()
}

func (s *Service) brandStrategy() strategy[models.BrandPayload] {
	return strategy[models.BrandPayload]{
		kind: models.SubmissionKindBrand,
		prepare: func(ctx context.Context, p *models.BrandPayload) error {
			p.BrandName = strings.TrimSpace(p.BrandName)
			if p.BrandName == "" {
				return services.ErrInvalidInput.WithMessage("brand name is required")
			}

			_, err := s.catalog.GetBrandByName(ctx, p.BrandName)
			if err == nil {
				return services.ErrAlreadyExists.
					WithMessage("brand %q already exists", p.BrandName).
					WithDetail("brand_name", p.BrandName)
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return services.WrapInternal("failed to look up brand", err)
			}
			return nil
		},
		naturalKey: func(p models.BrandPayload) string {
			return BrandKey(p.BrandName)
		},
	}
}

func (s *Service) polishStrategy() strategy[models.PolishPayload] {
	return strategy[models.PolishPayload]{
		kind: models.SubmissionKindPolish,
		prepare: func(ctx context.Context, p *models.PolishPayload) error {
			p.Name = strings.TrimSpace(p.Name)
			if p.Name == "" {
				return services.ErrInvalidInput.WithMessage("polish name is required")
			}

			if err := s.requireBrand(ctx, p.BrandID); err != nil {
				return err
			}
			if err := s.requireLookup(ctx, models.LookupPolishTypes, p.TypeID); err != nil {
				return err
			}
			if err := s.requireLookup(ctx, models.LookupColors, p.PrimaryColorID); err != nil {
				return err
			}
			for _, id := range p.EffectColorIDs {
				if err := s.requireLookup(ctx, models.LookupColors, id); err != nil {
					return err
				}
			}
			for _, id := range p.FormulaIDs {
				if err := s.requireLookup(ctx, models.LookupFormulas, id); err != nil {
					return err
				}
			}

			_, err := s.catalog.GetPolishByName(ctx, p.BrandID, p.Name)
			if err == nil {
				return services.ErrAlreadyExists.
					WithMessage("polish %q already exists for this brand", p.Name).
					WithDetail("name", p.Name)
			}
			if !errors.Is(err, repositories.ErrNotFound) {
				return services.WrapInternal("failed to look up polish", err)
			}
			return nil
		},
		naturalKey: func(p models.PolishPayload) string {
			return PolishKey(p.BrandID, p.Name)
		},
	}
}

func (s *Service) dupeStrategy() strategy[models.DupePayload] {
	return strategy[models.DupePayload]{
		kind: models.SubmissionKindDupe,
		prepare: func(ctx context.Context, p *models.DupePayload) error {
			if p.PolishID == uuid.Nil || p.SimilarToPolishID == uuid.Nil {
				return services.ErrInvalidInput.WithMessage("both polish ids are required")
			}
			if p.PolishID == p.SimilarToPolishID {
				return services.ErrInvalidInput.WithMessage("a polish cannot be a dupe of itself")
			}

			for _, id := range []uuid.UUID{p.PolishID, p.SimilarToPolishID} {
				if _, err := s.catalog.GetPolishByID(ctx, id); err != nil {
					if errors.Is(err, repositories.ErrNotFound) {
						return entityNotFound("polish", id)
					}
					return services.WrapInternal("failed to look up polish", err)
				}
			}

			linked, err := s.catalog.DupeLinkExists(ctx, p.PolishID, p.SimilarToPolishID)
			if err != nil {
				return services.WrapInternal("failed to look up dupe link", err)
			}
			if linked {
				return services.ErrAlreadyExists.WithMessage("polishes are already linked as dupes")
			}
			return nil
		},
		naturalKey: func(p models.DupePayload) string {
			return DupeKey(p.PolishID, p.SimilarToPolishID)
		},
	}
}

func entityNotFound(entity string, id uuid.UUID) error {
	return services.ErrEntityNotFound.
		WithMessage("%s not found", entity).
		WithDetail("entity", entity).
		WithDetail("id", id.String())
}

func (s *Service) requireBrand(ctx context.Context, id uuid.UUID) error {
	if _, err := s.catalog.GetBrandByID(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return entityNotFound("brand", id)
		}
		return services.WrapInternal("failed to look up brand", err)
	}
	return nil
}

func (s *Service) requireLookup(ctx context.Context, table models.LookupTable, id uuid.UUID) error {
	if _, err := s.catalog.GetLookupByID(ctx, table, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return entityNotFound(string(table), id)
		}
		return services.WrapInternal("failed to look up "+string(table), err)
	}
	return nil
}
