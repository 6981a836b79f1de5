package api

import (
	"github.com/labstack/echo/v4"

	"github.com/lithictech/go-contentvalidation/logctx"
)

const TraceIdHeader = "Trace-Id"

// RequestIdHeader is accepted as the inbound trace id when Trace-Id is absent,
// so ids minted by a proxy carry through to validation logs.
const RequestIdHeader = "X-Request-Id"

// TraceId returns the request's trace id, and echoes it in the Trace-Id response header.
// The id comes from the echo context if already resolved,
// then Trace-Id, then X-Request-Id, and is otherwise generated with logctx.IdProvider.
func TraceId(c echo.Context) string {
	key := string(logctx.RequestTraceIdKey)
	if id, ok := c.Get(key).(string); ok && id != "" {
		return id
	}
	id := inboundTraceId(c)
	if id == "" {
		id = logctx.IdProvider()
	}
	c.Set(key, id)
	c.Response().Header().Set(TraceIdHeader, id)
	return id
}

func inboundTraceId(c echo.Context) string {
	h := c.Request().Header
	if id := h.Get(TraceIdHeader); id != "" {
		return id
	}
	return h.Get(RequestIdHeader)
}
