package models

import "github.com/google/uuid"

// Brand is a published catalog brand
type Brand struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// TableName returns the table name for the Brand model
func (Brand) TableName() string {
	return "brands"
}

// Polish is a published catalog polish
type Polish struct {
	ID      uuid.UUID `json:"id" db:"id"`
	BrandID uuid.UUID `json:"brand_id" db:"brand_id"`
	Name    string    `json:"name" db:"name"`
}

// TableName returns the table name for the Polish model
func (Polish) TableName() string {
	return "polishes"
}

// LookupTable names a canonical reference table keyed by a unique name
type LookupTable string

const (
	LookupPolishTypes LookupTable = "polish_types"
	LookupColors      LookupTable = "colors"
	LookupFormulas    LookupTable = "formulas"
)

// LookupEntry is one row of a reference table (type, color or formula)
type LookupEntry struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}
