package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"todo-web/view"
)

// ServerOptions configures the HTTP front end.
type ServerOptions struct {
	Renderer *view.Renderer
	Registry *prometheus.Registry
	Logger   *log.Logger
	// RateLimit is the sustained requests per second allowed per client IP.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewServer builds the echo instance with middleware, metrics and page routes.
func NewServer(tl TaskList, opts ServerOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = templateRenderer{r: opts.Renderer}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxFormBody))
	e.Use(noStore())
	e.Use(compressPages())

	if opts.Registry != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "todo_web",
			Registerer: opts.Registry,
			Skipper: func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/events"
			},
		}))
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Registry}))
	}

	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: func(c echo.Context) bool { return c.Path() == "/healthz" },
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(opts.RateLimit),
				Burst:     burst,
				ExpiresIn: 3 * time.Minute,
			}),
		}))
	}

	Register(e, tl, opts.Logger)
	return e
}
