package httpapi

import (
	stdhttp "net/http"

	"dreamreel/internal/http/handlers"
	appmw "dreamreel/internal/middleware"
	"dreamreel/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// RouterOptions carries the cross-cutting pieces the router wires in front of
// the handlers. Limiter may be nil to disable submission throttling.
type RouterOptions struct {
	JWTSecret string
	Limiter   appmw.SubmitLimiter
	Logger    zerolog.Logger
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(appmw.Logger(opts.Logger))

	r.Get("/v1/healthz", app.Health)
	r.Method(stdhttp.MethodGet, "/metrics", telemetry.Handler())

	r.Route("/v1/reels", func(r chi.Router) {
		r.Use(appmw.AuthJWT(opts.JWTSecret))
		r.With(appmw.RateLimit(opts.Limiter, opts.Logger)).Post("/", app.ReelsCreate)
		r.Get("/", app.ReelsList)
		r.Get("/{job_id}", app.ReelStatus)
	})

	return r
}
