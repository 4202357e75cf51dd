package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories"
	"go.uber.org/zap"
)

// CatalogRepository implements the repositories.CatalogRepository interface
type CatalogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *DB, logger *zap.Logger) repositories.CatalogRepository {
	return &CatalogRepository{
		db:     db,
		logger: logger,
	}
}

// GetBrandByID retrieves a canonical brand
func (r *CatalogRepository) GetBrandByID(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	brand := &models.Brand{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name FROM brands WHERE id = $1`, id,
	).Scan(&brand.ID, &brand.Name)
	if err != nil {
		return nil, translateError(err, "failed to get brand %s", id)
	}
	return brand, nil
}

// GetBrandByName retrieves a canonical brand by case-insensitive name
func (r *CatalogRepository) GetBrandByName(ctx context.Context, name string) (*models.Brand, error) {
	brand := &models.Brand{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name FROM brands WHERE lower(name) = lower($1)`, name,
	).Scan(&brand.ID, &brand.Name)
	if err != nil {
		return nil, translateError(err, "failed to get brand %q", name)
	}
	return brand, nil
}

// GetPolishByID retrieves a canonical polish
func (r *CatalogRepository) GetPolishByID(ctx context.Context, id uuid.UUID) (*models.Polish, error) {
	polish := &models.Polish{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, brand_id, name FROM polishes WHERE id = $1`, id,
	).Scan(&polish.ID, &polish.BrandID, &polish.Name)
	if err != nil {
		return nil, translateError(err, "failed to get polish %s", id)
	}
	return polish, nil
}

// GetPolishByName retrieves a polish of a brand by case-insensitive name
func (r *CatalogRepository) GetPolishByName(ctx context.Context, brandID uuid.UUID, name string) (*models.Polish, error) {
	polish := &models.Polish{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, brand_id, name FROM polishes WHERE brand_id = $1 AND lower(name) = lower($2)`,
		brandID, name,
	).Scan(&polish.ID, &polish.BrandID, &polish.Name)
	if err != nil {
		return nil, translateError(err, "failed to get polish %q", name)
	}
	return polish, nil
}

// GetLookupByID retrieves a reference entry
func (r *CatalogRepository) GetLookupByID(ctx context.Context, table models.LookupTable, id uuid.UUID) (*models.LookupEntry, error) {
	if err := validLookup(table); err != nil {
		return nil, err
	}
	entry := &models.LookupEntry{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name FROM `+string(table)+` WHERE id = $1`, id,
	).Scan(&entry.ID, &entry.Name)
	if err != nil {
		return nil, translateError(err, "failed to get %s %s", table, id)
	}
	return entry, nil
}

// GetLookupByName retrieves a reference entry by case-insensitive name
func (r *CatalogRepository) GetLookupByName(ctx context.Context, table models.LookupTable, name string) (*models.LookupEntry, error) {
	if err := validLookup(table); err != nil {
		return nil, err
	}
	entry := &models.LookupEntry{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, name FROM `+string(table)+` WHERE lower(name) = lower($1)`, name,
	).Scan(&entry.ID, &entry.Name)
	if err != nil {
		return nil, translateError(err, "failed to get %s %q", table, name)
	}
	return entry, nil
}

// DupeLinkExists reports whether two polishes are already linked
func (r *CatalogRepository) DupeLinkExists(ctx context.Context, a, b uuid.UUID) (bool, error) {
	first, second := models.OrderPolishPair(a, b)

	var exists bool
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM dupes WHERE polish_id = $1 AND similar_to_polish_id = $2)`,
		first, second,
	).Scan(&exists)
	if err != nil {
		return false, translateError(err, "failed to check dupe link")
	}
	return exists, nil
}

// validLookup guards the table name interpolated into lookup queries
func validLookup(table models.LookupTable) error {
	switch table {
	case models.LookupPolishTypes, models.LookupColors, models.LookupFormulas:
		return nil
	}
	return fmt.Errorf("unknown lookup table %q", table)
}
