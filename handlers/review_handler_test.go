package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/repositories/memory"
	"github.com/polishfinder/backend/services/moderation"
	"github.com/polishfinder/backend/services/submission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type reviewEnv struct {
	submissions *submission.Service
	router      chi.Router
	reviewer    uuid.UUID
}

func newReviewEnv() *reviewEnv {
	store := memory.NewStore()
	repos := store.Repositories()
	h := NewReviewHandler(moderation.NewController(repos, nil, zap.NewNop()), zap.NewNop())

	env := &reviewEnv{
		submissions: submission.NewService(repos, nil, zap.NewNop()),
		router:      chi.NewRouter(),
		reviewer:    uuid.New(),
	}
	env.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withActor(r, env.reviewer))
		})
	})
	env.router.Get("/reviews/{kind}", h.HandleListPending)
	env.router.Put("/reviews/{kind}/{id}", h.HandleReview)
	return env
}

func (e *reviewEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestReviewHandler_Review(t *testing.T) {
	env := newReviewEnv()
	sub, err := env.submissions.SubmitBrand(t.Context(), uuid.New(), models.BrandPayload{BrandName: "Zoya"})
	require.NoError(t, err)

	w := env.serve(jsonRequest(t, http.MethodPut, "/reviews/brands/"+sub.ID.String(), ReviewRequest{Status: "approved"}))
	require.Equal(t, http.StatusOK, w.Code)
	reviewed := decodeSubmission(t, w)
	assert.Equal(t, models.SubmissionStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, env.reviewer, *reviewed.ReviewedBy)

	w = env.serve(jsonRequest(t, http.MethodPut, "/reviews/brands/"+sub.ID.String(), ReviewRequest{Status: "rejected"}))
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "invalid_transition", resp.Code)
	assert.Equal(t, "approved", resp.Details["status"])
}

func TestReviewHandler_ReviewErrors(t *testing.T) {
	env := newReviewEnv()
	sub, err := env.submissions.SubmitBrand(t.Context(), uuid.New(), models.BrandPayload{BrandName: "Zoya"})
	require.NoError(t, err)

	tests := []struct {
		name           string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{"unknown kind", "/reviews/bottles/" + sub.ID.String(), ReviewRequest{Status: "approved"}, http.StatusNotFound},
		{"malformed id", "/reviews/brands/abc", ReviewRequest{Status: "approved"}, http.StatusBadRequest},
		{"missing submission", "/reviews/brands/" + uuid.NewString(), ReviewRequest{Status: "approved"}, http.StatusNotFound},
		{"wrong kind", "/reviews/polishes/" + sub.ID.String(), ReviewRequest{Status: "approved"}, http.StatusNotFound},
		{"pending is not a decision", "/reviews/brands/" + sub.ID.String(), ReviewRequest{Status: "pending"}, http.StatusBadRequest},
		{"empty body", "/reviews/brands/" + sub.ID.String(), "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.serve(jsonRequest(t, http.MethodPut, tt.path, tt.body))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestReviewHandler_ListPending(t *testing.T) {
	env := newReviewEnv()
	for _, name := range []string{"OPI", "Essie", "China Glaze"} {
		_, err := env.submissions.SubmitBrand(t.Context(), uuid.New(), models.BrandPayload{BrandName: name})
		require.NoError(t, err)
	}

	decodeList := func(w *httptest.ResponseRecorder) []models.Submission {
		var resp struct {
			Data []models.Submission `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp.Data
	}

	w := env.serve(httptest.NewRequest(http.MethodGet, "/reviews/brands", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(w), 3)

	w = env.serve(httptest.NewRequest(http.MethodGet, "/reviews/brands?limit=2&offset=2", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(w), 1)

	w = env.serve(httptest.NewRequest(http.MethodGet, "/reviews/polishes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(w))

	w = env.serve(httptest.NewRequest(http.MethodGet, "/reviews/brands?limit=many", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
