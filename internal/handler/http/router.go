package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/middleware"
	"github.com/cmlabs-hris/cast-backoffice/internal/handler/http/response"
	"github.com/cmlabs-hris/cast-backoffice/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	WebhookSecret  string
	CronSecret     string
}

type Handlers struct {
	Recalculation RecalculationHandler
	Cron          CronHandler
	DailyStat     DailyStatHandler
	Payslip       PayslipHandler
	WageStatus    WageStatusHandler
	Marketplace   MarketplaceHandler
}

func NewRouter(logger *slog.Logger, JWTService jwt.Service, opts RouterOptions, h Handlers) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerSecret(opts.WebhookSecret))
			r.Post("/webhooks/recalculate", h.Recalculation.HandleWebhook)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerSecret(opts.CronSecret))
			r.Post("/cron/{job}", h.Cron.Run)
		})

		// Admin only
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))
			r.Use(middleware.AdminOnly)

			r.Post("/recalculate", h.Recalculation.RunManual)

			r.Route("/daily-stats", func(r chi.Router) {
				r.Get("/", h.DailyStat.List)
				r.Post("/finalize", h.DailyStat.Finalize)
				r.Post("/unfinalize", h.DailyStat.Unfinalize)
			})

			r.Route("/payslips", func(r chi.Router) {
				r.Get("/", h.Payslip.List)
				r.Post("/generate", h.Payslip.Generate)
				r.Get("/{castID}", h.Payslip.Get)
			})

			r.Route("/wage-status", func(r chi.Router) {
				r.Post("/evaluate", h.WageStatus.Evaluate)
				r.Route("/progress/{castID}", func(r chi.Router) {
					r.Put("/lock", h.WageStatus.SetLock)
					r.Post("/transition", h.WageStatus.Transition)
				})
			})

			r.Route("/marketplace", func(r chi.Router) {
				r.Get("/authorize", h.Marketplace.AuthorizeURL)
				r.Post("/connect", h.Marketplace.Connect)
			})
		})
	})
	return r
}
