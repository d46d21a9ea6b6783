package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const userKey = "userID"

// requireUser rejects requests without a valid bearer token. EventSource
// cannot set headers, so the token is also accepted as ?token=.
func requireUser(auth Authenticator, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if auth == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "authentication is not configured")
			}
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				if token := c.QueryParam("token"); token != "" {
					header = "Bearer " + token
				}
			}
			userID, err := auth.UserIDFromAuthHeader(header)
			if err != nil {
				logger.Debug("rejected request", "path", c.Path(), "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			c.Set(userKey, userID)
			return next(c)
		}
	}
}

func userID(c echo.Context) string {
	id, _ := c.Get(userKey).(string)
	return id
}
