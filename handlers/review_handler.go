package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/services/moderation"
	"github.com/polishfinder/backend/utils"
	"go.uber.org/zap"
)

// ReviewRequest carries a reviewer's decision
type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// ModerationController defines the review operations the handler needs
type ModerationController interface {
	ReviewSubmission(ctx context.Context, kind models.SubmissionKind, submissionID uuid.UUID, decision models.SubmissionStatus, reviewerID uuid.UUID) (*models.Submission, error)
	ListPending(ctx context.Context, kind models.SubmissionKind, limit, offset int) ([]*models.Submission, error)
}

// ReviewHandler handles the moderation queue
type ReviewHandler struct {
	controller ModerationController
	logger     *zap.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(controller ModerationController, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		controller: controller,
		logger:     logger,
	}
}

// HandleListPending handles GET /api/v1/reviews/{kind}
func (h *ReviewHandler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseSubmissionKind(chi.URLParam(r, "kind"))
	if err != nil {
		_ = utils.WriteNotFound(w, "Unknown submission kind")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	subs, err := h.controller.ListPending(r.Context(), kind, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, subs)
}

// HandleReview handles PUT /api/v1/reviews/{kind}/{id}
func (h *ReviewHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	kind, err := models.ParseSubmissionKind(chi.URLParam(r, "kind"))
	if err != nil {
		_ = utils.WriteNotFound(w, "Unknown submission kind")
		return
	}

	submissionID, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	reviewerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req ReviewRequest
	if !decodeAndValidate(w, r, &req, h.logger) {
		return
	}

	decision, err := moderation.ParseDecision(req.Status)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("reviewing submission",
		zap.String("request_id", requestID),
		zap.String("kind", string(kind)),
		zap.String("submission_id", submissionID.String()))

	sub, err := h.controller.ReviewSubmission(ctx, kind, submissionID, decision, reviewerID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, sub)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
