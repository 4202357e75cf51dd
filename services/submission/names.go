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

// PolishNames is a polish proposal referring to catalog entries by name
type PolishNames struct {
	BrandName    string
	Type         string
	PrimaryColor string
	EffectColors []string
	Formulas     []string
	Name         string
	Description  string
}

// ResolvePolishNames maps every referenced name to its canonical id.
// An unknown name yields ErrEntityNotFound.
func (s *Service) ResolvePolishNames(ctx context.Context, names PolishNames) (models.PolishPayload, error) {
	payload := models.PolishPayload{
		Name:        names.Name,
		Description: names.Description,
	}

	brand, err := s.catalog.GetBrandByName(ctx, strings.TrimSpace(names.BrandName))
	if err != nil {
		return payload, nameLookupError("brand", names.BrandName, err)
	}
	payload.BrandID = brand.ID

	if payload.TypeID, err = s.lookupID(ctx, models.LookupPolishTypes, names.Type); err != nil {
		return payload, err
	}
	if payload.PrimaryColorID, err = s.lookupID(ctx, models.LookupColors, names.PrimaryColor); err != nil {
		return payload, err
	}

	payload.EffectColorIDs = make([]uuid.UUID, 0, len(names.EffectColors))
	for _, name := range names.EffectColors {
		id, err := s.lookupID(ctx, models.LookupColors, name)
		if err != nil {
			return payload, err
		}
		payload.EffectColorIDs = append(payload.EffectColorIDs, id)
	}

	payload.FormulaIDs = make([]uuid.UUID, 0, len(names.Formulas))
	for _, name := range names.Formulas {
		id, err := s.lookupID(ctx, models.LookupFormulas, name)
		if err != nil {
			return payload, err
		}
		payload.FormulaIDs = append(payload.FormulaIDs, id)
	}

	return payload, nil
}

func (s *Service) lookupID(ctx context.Context, table models.LookupTable, name string) (uuid.UUID, error) {
	entry, err := s.catalog.GetLookupByName(ctx, table, strings.TrimSpace(name))
	if err != nil {
		return uuid.Nil, nameLookupError(string(table), name, err)
	}
	return entry.ID, nil
}

func nameLookupError(entity, name string, err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrEntityNotFound.
			WithMessage("%s %q not found", entity, name).
			WithDetail("entity", entity).
			WithDetail("name", name)
	}
	return services.WrapInternal("failed to look up "+entity, err)
}
