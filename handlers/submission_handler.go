package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/services/submission"
	"github.com/polishfinder/backend/utils"
	"go.uber.org/zap"
)

// BrandSubmissionRequest proposes a brand
type BrandSubmissionRequest struct {
	BrandName string `json:"brand_name" validate:"required,max=100"`
}

// PolishSubmissionRequest proposes a polish, referring to catalog entries by name
type PolishSubmissionRequest struct {
	BrandName    string   `json:"brand_name" validate:"required"`
	Type         string   `json:"type" validate:"required"`
	PrimaryColor string   `json:"primary_color" validate:"required"`
	EffectColors []string `json:"effect_colors" validate:"dive,required"`
	Formulas     []string `json:"formulas" validate:"dive,required"`
	Name         string   `json:"name" validate:"required,max=100"`
	Description  string   `json:"description" validate:"max=1000"`
}

// DupeSubmissionRequest claims two polishes are near-duplicates
type DupeSubmissionRequest struct {
	PolishID          string `json:"polish_id" validate:"required,uuid"`
	SimilarToPolishID string `json:"similar_to_polish_id" validate:"required,uuid,nefield=PolishID"`
}

// SubmissionService defines the submission operations the handler needs
type SubmissionService interface {
	SubmitBrand(ctx context.Context, submitterID uuid.UUID, payload models.BrandPayload) (*models.Submission, error)
	SubmitPolish(ctx context.Context, submitterID uuid.UUID, payload models.PolishPayload) (*models.Submission, error)
	SubmitDupe(ctx context.Context, submitterID uuid.UUID, payload models.DupePayload) (*models.Submission, error)
	ResolvePolishNames(ctx context.Context, names submission.PolishNames) (models.PolishPayload, error)
}

// SubmissionHandler handles catalog submissions
type SubmissionHandler struct {
	service SubmissionService
	logger  *zap.Logger
}

// NewSubmissionHandler creates a new SubmissionHandler
func NewSubmissionHandler(service SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSubmitBrand handles POST /api/v1/submissions/brands
func (h *SubmissionHandler) HandleSubmitBrand(w http.ResponseWriter, r *http.Request) {
	submitterID, ok := h.submitter(w, r)
	if !ok {
		return
	}

	var req BrandSubmissionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	sub, err := h.service.SubmitBrand(r.Context(), submitterID, models.BrandPayload{BrandName: req.BrandName})
	h.respond(w, sub, err)
}

// HandleSubmitPolish handles POST /api/v1/submissions/polishes
func (h *SubmissionHandler) HandleSubmitPolish(w http.ResponseWriter, r *http.Request) {
	submitterID, ok := h.submitter(w, r)
	if !ok {
		return
	}

	var req PolishSubmissionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	ctx := r.Context()
	payload, err := h.service.ResolvePolishNames(ctx, submission.PolishNames{
		BrandName:    req.BrandName,
		Type:         req.Type,
		PrimaryColor: req.PrimaryColor,
		EffectColors: req.EffectColors,
		Formulas:     req.Formulas,
		Name:         req.Name,
		Description:  req.Description,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	sub, err := h.service.SubmitPolish(ctx, submitterID, payload)
	h.respond(w, sub, err)
}

// HandleSubmitDupe handles POST /api/v1/submissions/dupes
func (h *SubmissionHandler) HandleSubmitDupe(w http.ResponseWriter, r *http.Request) {
	submitterID, ok := h.submitter(w, r)
	if !ok {
		return
	}

	var req DupeSubmissionRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	// both ids were checked by the uuid tag
	payload := models.DupePayload{
		PolishID:          uuid.MustParse(req.PolishID),
		SimilarToPolishID: uuid.MustParse(req.SimilarToPolishID),
	}

	sub, err := h.service.SubmitDupe(r.Context(), submitterID, payload)
	h.respond(w, sub, err)
}

func (h *SubmissionHandler) submitter(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	submitterID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
	}
	return submitterID, ok
}

func (h *SubmissionHandler) respond(w http.ResponseWriter, sub *models.Submission, err error) {
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteCreated(w, sub)
}
