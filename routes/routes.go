package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/polishfinder/backend/app"
	"github.com/polishfinder/backend/middleware"
	"github.com/polishfinder/backend/models"
	"github.com/polishfinder/backend/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	auth := deps.AuthMiddleware
	perms := deps.PermissionMiddleware

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(deps.Config.RateLimit.SubmissionsPerMinute, time.Minute))
			r.Post("/register", deps.AuthHandler.HandleRegister)
			r.Post("/login", deps.AuthHandler.HandleLogin)
			r.Post("/refresh", deps.AuthHandler.HandleRefresh)
			r.Post("/logout", deps.AuthHandler.HandleLogout)
		})

		// Role management
		r.Route("/roles", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(perms.RequirePermission(models.PermManageRoles))
			r.Post("/assign", deps.RoleHandler.HandleAssign)
			r.Post("/revoke", deps.RoleHandler.HandleRevoke)
		})

		// Catalog submissions
		r.Route("/submissions", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(httprate.Limit(
				deps.Config.RateLimit.SubmissionsPerMinute,
				time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					_ = utils.WriteTooManyRequests(w, "Too many submissions, slow down")
				}),
			))
			r.With(perms.RequirePermission(models.PermUploadBrand)).
				Post("/brands", deps.SubmissionHandler.HandleSubmitBrand)
			r.With(perms.RequirePermission(models.PermUploadPolish)).
				Post("/polishes", deps.SubmissionHandler.HandleSubmitPolish)
			r.With(perms.RequirePermission(models.PermUploadDupe)).
				Post("/dupes", deps.SubmissionHandler.HandleSubmitDupe)
		})

		// Moderation queue
		r.Route("/reviews/{kind}", func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Use(perms.RequireKindPermission("kind", models.ManagePermission))
			r.Get("/", deps.ReviewHandler.HandleListPending)
			r.Put("/{id}", deps.ReviewHandler.HandleReview)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
