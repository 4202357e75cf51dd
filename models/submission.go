package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubmissionKind tags the three kinds of catalog proposals
type SubmissionKind string

const (
	SubmissionKindBrand  SubmissionKind = "brand"
	SubmissionKindPolish SubmissionKind = "polish"
	SubmissionKindDupe   SubmissionKind = "dupe"
)

// SubmissionKinds lists every supported kind
var SubmissionKinds = []SubmissionKind{
	SubmissionKindBrand,
	SubmissionKindPolish,
	SubmissionKindDupe,
}

// ParseSubmissionKind converts a path or query value into a SubmissionKind.
// Plural forms ("brands", "polishes", "dupes") are accepted.
func ParseSubmissionKind(s string) (SubmissionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brand", "brands":
		return SubmissionKindBrand, nil
	case "polish", "polishes":
		return SubmissionKindPolish, nil
	case "dupe", "dupes":
		return SubmissionKindDupe, nil
	}
	return "", fmt.Errorf("unknown submission kind: %q", s)
}

// SubmissionStatus is the lifecycle state of a submission
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// statusTransitions is the complete set of allowed moves; anything absent is rejected
var statusTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusPending: {SubmissionStatusApproved, SubmissionStatusRejected},
}

// ParseSubmissionStatus converts a string into a known SubmissionStatus
func ParseSubmissionStatus(s string) (SubmissionStatus, error) {
	switch status := SubmissionStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case SubmissionStatusPending, SubmissionStatusApproved, SubmissionStatusRejected:
		return status, nil
	}
	return "", fmt.Errorf("unknown submission status: %q", s)
}

// IsTerminal reports whether no further transition is possible
func (s SubmissionStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s SubmissionStatus) CanTransitionTo(next SubmissionStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Submission is a pending proposal awaiting a moderator decision.
// All kinds share this row shape; Payload holds the kind-specific fields
// and NaturalKey the normalized value used for duplicate detection.
type Submission struct {
	ID          uuid.UUID        `json:"id" db:"id"`
	Kind        SubmissionKind   `json:"kind" db:"kind"`
	SubmitterID uuid.UUID        `json:"submitter_id" db:"submitter_id"`
	NaturalKey  string           `json:"-" db:"natural_key"`
	Payload     json.RawMessage  `json:"payload" db:"payload"`
	Status      SubmissionStatus `json:"status" db:"status"`
	ReviewedBy  *uuid.UUID       `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt  *time.Time       `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Submission model
func (Submission) TableName() string {
	return "submissions"
}

// NewSubmission creates a pending submission with the payload encoded as JSON
func NewSubmission(kind SubmissionKind, submitterID uuid.UUID, naturalKey string, payload interface{}) (*Submission, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	now := time.Now()
	return &Submission{
		ID:          uuid.New(),
		Kind:        kind,
		SubmitterID: submitterID,
		NaturalKey:  naturalKey,
		Payload:     data,
		Status:      SubmissionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// DecodePayload unmarshals the stored payload into v
func (s *Submission) DecodePayload(v interface{}) error {
	if len(s.Payload) == 0 {
		return fmt.Errorf("submission %s has no payload", s.ID)
	}
	return json.Unmarshal(s.Payload, v)
}

// BrandPayload proposes a new canonical brand
type BrandPayload struct {
	BrandName string `json:"brand_name"`
}

// PolishPayload proposes a new canonical polish. All references are
// canonical ids resolved before the submission is stored.
type PolishPayload struct {
	BrandID        uuid.UUID   `json:"brand_id"`
	TypeID         uuid.UUID   `json:"type_id"`
	PrimaryColorID uuid.UUID   `json:"primary_color_id"`
	EffectColorIDs []uuid.UUID `json:"effect_color_ids"`
	FormulaIDs     []uuid.UUID `json:"formula_ids"`
	Name           string      `json:"name"`
	Description    string      `json:"description"`
}

// DupePayload claims that two polishes are near-duplicates.
// The pair is unordered: (a, b) and (b, a) are the same claim.
type DupePayload struct {
	PolishID          uuid.UUID `json:"polish_id"`
	SimilarToPolishID uuid.UUID `json:"similar_to_polish_id"`
}

// OrderedPair returns the two polish ids with the smaller one first
func (p DupePayload) OrderedPair() (uuid.UUID, uuid.UUID) {
	return OrderPolishPair(p.PolishID, p.SimilarToPolishID)
}

// OrderPolishPair sorts two polish ids by their byte representation
func OrderPolishPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
