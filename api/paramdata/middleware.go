package paramdata

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/lithictech/go-contentvalidation/api"
	"github.com/lithictech/go-contentvalidation/apiproblem"
)

const contextKey = "contentvalidation.paramdata"

func Get(c echo.Context) *Container {
	pd, _ := c.Get(contextKey).(*Container)
	return pd
}

func Set(c echo.Context, pd *Container) {
	c.Set(contextKey, pd)
}

func Middleware() echo.MiddlewareFunc {
	return MiddlewareWithConfig(Config{})
}

// MiddlewareWithConfig decodes each request into a Container available through Get.
// Bodies that cannot be decoded fail with a 400 problem,
// and bodies of an unsupported type with a 415 problem.
func MiddlewareWithConfig(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			pd, err := FromRequest(c.Request(), cfg)
			if pd != nil {
				defer func() {
					if cerr := pd.Cleanup(); cerr != nil {
						api.Logger(c).WithError(cerr).Warn("paramdata_cleanup_error")
					}
				}()
			}
			if errors.Is(err, ErrUnsupportedMediaType) {
				return apiproblem.New(http.StatusUnsupportedMediaType, err.Error())
			}
			if errors.Is(err, ErrMalformedBody) {
				return apiproblem.New(http.StatusBadRequest, err.Error())
			}
			if err != nil {
				return err
			}
			Set(c, pd)
			return next(c)
		}
	}
}
