package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/lithictech/go-contentvalidation/logctx"
)

// StdContext returns a standard context from an echo context.
// The validation middleware uses it to hand the dispatcher a context
// carrying the request's logger and trace id, since the dispatcher does not know about echo.
// This uses the logctx package to set the expected values in the context,
// so the echo context's request trace and logger are passed along.
func StdContext(c echo.Context) context.Context {
	cc := c.Request().Context()
	cc = context.WithValue(cc, logctx.RequestTraceIdKey, TraceId(c))
	cc = logctx.WithLogger(cc, Logger(c))
	cc = logctx.WithTracingLogger(cc)
	return cc
}
