package echo

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/identity-migration/internal/application/account"
)

const employeeIDKey = "employee_id"

type TokenParser interface {
	Parse(token string) (*app.Claims, error)
}

// RequireToken rejects requests without a valid bearer token and stores the
// token's employee id on the context.
func RequireToken(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return writeError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				return writeError(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			}

			c.Set(employeeIDKey, claims.ID)
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
