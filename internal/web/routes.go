package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/secureface/secureface/internal/web/handlers"
	"github.com/secureface/secureface/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	enrollHandler := handlers.NewEnrollHandler(s.deps, s.sessionManager)
	loginHandler := handlers.NewLoginHandler(s.deps, s.sessionManager)
	authHandler := handlers.NewAuthHandler(s.sessionManager)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Enrollment
		r.Post("/enroll/profile", enrollHandler.Profile)
		r.Post("/enroll/face", enrollHandler.Face)

		// Login
		r.Post("/login/identify", loginHandler.Identify)
		r.Post("/login/scan", loginHandler.Scan)
		r.Post("/login/otp", loginHandler.OTP)
		r.Post("/login/otp/resend", loginHandler.Resend)

		// Session
		r.Get("/auth/status", authHandler.Status)
		r.Post("/auth/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))
			r.Get("/me", authHandler.Me)
		})
	})

	s.router.Get("/*", s.servePlaceholder)
}

// servePlaceholder answers non-API paths when no frontend bundle is served
// alongside the API.
func (s *Server) servePlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>SecureFace</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #0f172a; color: #e2e8f0; }
        .container { text-align: center; }
        h1 { color: #38bdf8; }
        p { color: #94a3b8; }
        a { color: #38bdf8; }
        code { background: #1e293b; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>SecureFace</h1>
        <p>No frontend bundle is deployed. The API is available at <a href="/api/v1/health">/api/v1/health</a>.</p>
        <p>Enrollment starts at <code>POST /api/v1/enroll/profile</code>.</p>
    </div>
</body>
</html>`))
}
