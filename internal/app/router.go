package app

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "attendcalc/internal/errors"
	"attendcalc/internal/middleware"
	handlers "attendcalc/internal/transport/http"
	"attendcalc/pkg/contracts"
)

// setupRouter orders middleware as RequestID, RealIP, OTel, logger,
// recoverer, then rate limiting and timeouts for the API only.
func (a *Application) setupRouter() {
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	r := chi.NewRouter()
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(errorHandler))
	r.Use(middleware.SecurityHeaders)

	health := handlers.NewHealthHandler(contracts.GetVersionInfo(), a.Store)
	r.Get("/healthz", health.HealthCheck)
	r.Method("GET", "/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, errorHandler))

	attendance := handlers.NewAttendanceHandler(a.Attendance, errorHandler, a.Logger, a.Config.Server.MaxUploadBytes)

	r.Group(func(r chi.Router) {
		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(middleware.NewRateLimiter(rl.RPS, rl.Burst, errorHandler, a.Logger).Handler)
		}
		r.Use(middleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/api", attendance.Routes())
	})

	a.Router = r
}
