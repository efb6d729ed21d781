package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/joyofrisk/api/app"
	"github.com/joyofrisk/api/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if deps.Config.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(deps.Config.Server.RequestTimeout))
	}

	// The session cookie requires credentialed CORS from the configured frontend origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.HealthChecks, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	requireAuth := deps.AuthMiddleware.RequireAuth
	policy := deps.AccessPolicy

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Get("/health", handlers.ServiceInfoHandler(deps))
		r.Get("/plans", handlers.PlansHandler(deps))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", handlers.SignUpHandler(deps))
			r.Post("/signin", handlers.SignInHandler(deps))
			r.Post("/signout", handlers.SignOutHandler(deps))
			r.Get("/health", handlers.AuthHealthHandler(deps))
			r.Get("/permissions", handlers.PermissionsHandler(deps))

			r.With(requireAuth).Get("/me", handlers.MeHandler(deps))

			// User management
			r.Route("/users", func(r chi.Router) {
				r.Use(requireAuth)
				r.With(policy.RequireAdmin).Get("/", handlers.ListUsersHandler(deps))
				r.Route("/{id}", func(r chi.Router) {
					r.With(policy.RequireSelfOrAdmin("id")).Get("/", handlers.GetUserHandler(deps))
					r.With(policy.RequireSelfOrAdmin("id")).Delete("/", handlers.DeleteUserHandler(deps))
					r.With(policy.RequireAdmin).Put("/role", handlers.UpdateUserRoleHandler(deps))
					r.With(policy.RequireAdmin).Get("/audit", handlers.UserAuditHandler(deps))
				})
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/navigation", handlers.NavigationHandler(deps))
			r.Get("/home", handlers.HomeHandler(deps))
			r.Get("/pages/{slug}", handlers.PageHandler(deps))
		})
	})

	r.NotFound(handlers.NotFoundHandler)
	r.MethodNotAllowed(handlers.MethodNotAllowedHandler)

	return r
}
