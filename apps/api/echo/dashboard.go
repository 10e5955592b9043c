package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core/dashboard"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

type dashboardApi struct {
	svc    dashboard.Service
	usrSvc user.Service
}

func registerDashboardAPI(g *echo.Group, auth *Authenticator, deps Deps) {
	api := dashboardApi{svc: deps.DashSvc, usrSvc: deps.UserSvc}
	g.GET("/dashboard", api.show, optionalJWT(jwtMiddleware(auth)))
}

// show renders the dashboard of the requesting user, or the public one when no token is sent.
func (api *dashboardApi) show(ctx echo.Context) error {
	var viewer *user.User
	if _, err := getContextClaims(ctx); err == nil {
		usr, err := getContextUser(ctx, api.usrSvc)
		if err != nil {
			return err
		}
		viewer = &usr
	}

	payload, err := api.svc.Build(ctx.Request().Context(), viewer)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, payload)
}
