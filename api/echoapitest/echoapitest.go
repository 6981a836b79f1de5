package echoapitest

import (
	"net/http"
	"net/http/httptest"

	"github.com/labstack/echo/v4"
)

func Serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

// NewContext returns a context for calling middleware or handlers directly.
func NewContext(e *echo.Echo, req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}
