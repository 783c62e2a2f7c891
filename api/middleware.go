package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// maxFormBody caps add and edit form posts.
const maxFormBody = "64K"

// compressPages gzips HTML responses for clients that accept it. The event
// stream and metrics endpoints are left alone.
func compressPages() echo.MiddlewareFunc {
	return middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			switch c.Path() {
			case "/events", "/metrics", "/healthz":
				return true
			}
			return !acceptsGzip(c.Request().Header.Get(echo.HeaderAcceptEncoding))
		},
	})
}

func acceptsGzip(header string) bool {
	if header == "" {
		return false
	}
	for _, enc := range strings.Split(header, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "gzip") {
			return true
		}
	}
	return false
}

// noStore marks GET responses uncacheable.
func noStore() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method == http.MethodGet && c.Path() != "/metrics" {
				c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
			}
			return next(c)
		}
	}
}
