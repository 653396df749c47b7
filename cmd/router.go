package cmd

import (
	"net/http"

	"my-trips/internal/config"
	"my-trips/internal/handlers"
	"my-trips/internal/metrics"
	"my-trips/internal/middleware"
	"my-trips/internal/services"
	"my-trips/internal/views"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type routerDeps struct {
	cfg         *config.Config
	userService *services.UserService
	tripService *services.TripService
	hub         *services.EventHub
	views       *views.Renderer
	db          handlers.Pinger
}

func buildRouter(d routerDeps) http.Handler {
	// Initialize handlers
	userHandler := handlers.NewUserHandler(d.userService, d.views, d.cfg.JWT.CookieName, d.cfg.JWT.Secure)
	tripHandler := handlers.NewTripHandler(d.tripService, d.views, d.cfg.App.MaxUploadBytes)
	photoHandler := handlers.NewPhotoHandler(d.tripService)
	wsHandler := handlers.NewWebSocketHandler(d.hub)
	limiter := middleware.NewRateLimiter(d.cfg.App.LoginRate, d.cfg.App.LoginBurst)

	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(securityHeaders)

	// Public routes
	r.Get("/healthz", handlers.HealthHandler(d.db))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/login", userHandler.LoginForm)
	r.With(limiter.Handler).Post("/login", userHandler.Login)
	r.Get("/register", userHandler.RegisterForm)
	r.With(limiter.Handler).Post("/register", userHandler.Register)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(d.userService, d.cfg.JWT.CookieName))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, handlers.TripsPagePath, http.StatusFound)
		})
		r.Get("/trips-page", tripHandler.TripsPage)
		r.Get("/addtrips", tripHandler.NewTripForm)
		r.Post("/addtrips", tripHandler.CreateTrip)
		r.Get("/edit/{tripId}", tripHandler.EditTripForm)
		r.Post("/edit/{tripId}", tripHandler.UpdateTrip)
		r.Get("/delete/{tripId}", tripHandler.DeleteTripForm)
		r.Post("/delete/{tripId}", tripHandler.DeleteTrip)
		r.Get("/photos/{photoId}", photoHandler.GetPhoto)
		r.Post("/logout", userHandler.Logout)

		// WebSocket route
		r.Get("/ws", wsHandler.HandleWebSocket)
	})

	return r
}

// securityHeaders sets browser hardening headers on every response
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}
