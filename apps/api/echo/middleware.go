package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/appdotbuilder/junior-science-lms/core/user"
)

// roleMiddleware only lets users holding one of roles through.
func roleMiddleware(svc user.Service, roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if usr.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, user.RoleAdministrator)
}

// optionalJWT runs the jwt middleware only when the request carries a bearer token,
// so that anonymous requests reach the handler.
func optionalJWT(jwt echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withJWT := jwt(next)
		return func(ctx echo.Context) error {
			if strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderAuthorization)) == "" {
				return next(ctx)
			}
			return withJWT(ctx)
		}
	}
}
