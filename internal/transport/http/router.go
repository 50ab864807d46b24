package http

import (
	"net/http"

	"github.com/go-accounts-api/internal/application/account"
	"github.com/go-accounts-api/internal/application/session"
	"github.com/go-accounts-api/internal/application/verification"
	"github.com/go-accounts-api/internal/config"
	"github.com/go-accounts-api/internal/transport/http/handler"
	appmiddleware "github.com/go-accounts-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10. Applied to endpoints that touch
	// credentials or send email.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	verificationSvc := verification.NewService(deps.OTPRepo, deps.UserRepo, deps.Mailer, cfg.OTPLength, cfg.OTPTTL)
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ProfileRepo: deps.ProfileRepo,
		SessionRepo: deps.SessionRepo,
		Avatars:     deps.S3Store,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:   deps.SessionRepo,
		UserRepo:      deps.UserRepo,
		Signer:        deps.JWTProvider,
		RefreshExpiry: cfg.RefreshTokenExpiry,
	})

	healthH := handler.NewHealthHandler()
	accountH := handler.NewAccountHandler(accountSvc, verificationSvc)
	verificationH := handler.NewVerificationHandler(verificationSvc)
	resetH := handler.NewPasswordResetHandler(verificationSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/accounts", accountH.Register)
		r.With(sensitiveRL.Limit).Post("/accounts/verify-email", verificationH.VerifyEmail)
		r.With(sensitiveRL.Limit).Post("/accounts/resend-verification", verificationH.Resend)
		r.With(sensitiveRL.Limit).Post("/password-reset/request", resetH.Request)
		r.With(sensitiveRL.Limit).Post("/password-reset/confirm", resetH.Confirm)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/profile", accountH.GetProfile)
			r.Patch("/profile", accountH.UpdateProfile)
			r.Post("/profile/avatar", accountH.UploadAvatar)
			r.Get("/profile/avatar", accountH.AvatarURL)
			r.Post("/password/change", accountH.ChangePassword)
			r.Get("/verification-status", accountH.VerificationStatus)
			r.Get("/dashboard", accountH.Dashboard)
			r.Delete("/account", accountH.DeleteAccount)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireAdmin)

				r.Get("/users", accountH.List)
				r.Get("/users/{id}", accountH.AdminGet)
				r.Delete("/users/{id}", accountH.AdminDelete)
			})
		})
	})

	return r
}
