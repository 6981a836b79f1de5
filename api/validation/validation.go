// Package validation runs content validation for echo routes.
// It needs api/paramdata middleware installed before it.
package validation

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/lithictech/go-contentvalidation/api"
	"github.com/lithictech/go-contentvalidation/api/paramdata"
	"github.com/lithictech/go-contentvalidation/contentvalidation"
	"github.com/lithictech/go-contentvalidation/inputfilter"
)

const schemaKey = "contentvalidation.input_filter"

// ServiceResolver returns the service id for a matched route, or "" if the route is not a service.
type ServiceResolver func(c echo.Context) string

// RouteServices resolves service ids from the matched echo route path, like "/users/:user_id".
func RouteServices(services map[string]string) ServiceResolver {
	return func(c echo.Context) string {
		return services[c.Path()]
	}
}

func routePath(c echo.Context) string {
	return c.Path()
}

type Config struct {
	Dispatcher *contentvalidation.Dispatcher
	// Defaults to the matched route path, so services are named by their routes.
	ServiceResolver ServiceResolver
	// Optional.
	Metrics *Metrics
}

// Middleware validates each request for a configured service before its handler runs.
// Failures are returned as *apiproblem.Problem errors, which api.NewHTTPErrorHandler renders.
// On success, the handler sees the validated data in paramdata.Get(c).BodyParams(),
// and the schema that validated it through InputFilter(c).
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Dispatcher == nil {
		panic("validation.Middleware requires a Dispatcher")
	}
	if cfg.ServiceResolver == nil {
		cfg.ServiceResolver = routePath
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			service := cfg.ServiceResolver(c)
			if service == "" {
				return next(c)
			}
			start := time.Now()
			outcome, err := cfg.Dispatcher.Dispatch(api.StdContext(c), newRequest(c, service))
			record := func(result string, status int) {
				cfg.Metrics.observe(service, result, status, time.Since(start))
				api.AddDebugFields(c, logrus.Fields{
					"validation_service": service,
					"validation_outcome": result,
					"validation_status":  status,
				})
			}
			if err != nil {
				record(OutcomeError, http.StatusInternalServerError)
				return errors.Wrap(err, "content validation")
			}
			if outcome.Problem != nil {
				record(OutcomeFailed, outcome.Problem.Status)
				return outcome.Problem
			}
			if outcome.Skipped() {
				record(OutcomeSkipped, 0)
				return next(c)
			}
			record(OutcomePassed, 0)
			c.Set(schemaKey, outcome.Schema)
			return next(c)
		}
	}
}

func newRequest(c echo.Context, service string) *contentvalidation.Request {
	r := &contentvalidation.Request{
		Method:      c.Request().Method,
		ServiceID:   service,
		RouteParams: make(map[string]string, len(c.ParamNames())),
	}
	values := c.ParamValues()
	for i, name := range c.ParamNames() {
		if i < len(values) {
			r.RouteParams[name] = values[i]
		}
	}
	if pd := paramdata.Get(c); pd != nil {
		r.Data = pd
		r.Files = pd.Files()
	}
	return r
}

// InputFilter returns the schema that validated the request,
// or nil if the request was not validated.
func InputFilter(c echo.Context) inputfilter.Schema {
	s, _ := c.Get(schemaKey).(inputfilter.Schema)
	return s
}
