package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/logctx"
)

// DebugMiddlewareConfig controls which parts of a request and response are logged
// in a request_debug line. The request body is logged as received, before validation.
type DebugMiddlewareConfig struct {
	Enabled             bool
	DumpRequestBody     bool
	DumpResponseBody    bool
	DumpRequestHeaders  bool
	DumpResponseHeaders bool
	DumpAll             bool
}

const debugFieldsKey = "api.debug_fields"

// AddDebugFields attaches fields to the request_debug line of the request,
// like the content validation outcome. They are only logged when DebugMiddleware is enabled.
func AddDebugFields(c echo.Context, fields logrus.Fields) {
	existing, _ := c.Get(debugFieldsKey).(logrus.Fields)
	merged := make(logrus.Fields, len(existing)+len(fields))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	c.Set(debugFieldsKey, merged)
}

func DebugMiddleware(cfg DebugMiddlewareConfig) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}
	if cfg.DumpAll {
		cfg.DumpRequestHeaders = true
		cfg.DumpRequestBody = true
		cfg.DumpResponseHeaders = true
		cfg.DumpResponseBody = true
	}
	bd := middleware.BodyDump(func(c echo.Context, reqBody []byte, resBody []byte) {
		log := logctx.Logger(StdContext(c))
		if fields, ok := c.Get(debugFieldsKey).(logrus.Fields); ok {
			log = log.WithFields(fields)
		}
		if cfg.DumpRequestBody {
			log = log.WithField("debug_request_body", string(reqBody))
		}
		if cfg.DumpResponseBody {
			log = log.WithField("debug_response_body", string(resBody))
		}
		if cfg.DumpRequestHeaders {
			log = log.WithField("debug_request_headers", headerToMap(c.Request().Header))
		}
		if cfg.DumpResponseHeaders {
			log = log.WithField("debug_response_headers", headerToMap(c.Response().Header()))
		}
		log.Debug("request_debug")
	})
	return bd
}

func headerToMap(h http.Header) map[string]string {
	r := make(map[string]string, len(h))
	for k := range h {
		r[k] = h.Get(k)
	}
	return r
}
