package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/appdotbuilder/junior-science-lms/core/course"
	"github.com/appdotbuilder/junior-science-lms/core/user"
)

type courseApi struct {
	svc      course.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.list)
	cg.POST("", api.create, roleMiddleware(api.usrSvc, user.RoleTeacher, user.RoleAdministrator))
	cg.GET("/:id", api.show)
	cg.PUT("/:id", api.update, roleMiddleware(api.usrSvc, user.RoleTeacher, user.RoleAdministrator))
	cg.DELETE("/:id", api.delete, roleMiddleware(api.usrSvc, user.RoleTeacher, user.RoleAdministrator))
	cg.POST("/:id/enrollments", api.enroll, roleMiddleware(api.usrSvc, user.RoleTeacher, user.RoleAdministrator))
	cg.POST("/:id/quizzes/:quizId/attempts", api.submitQuizAttempt, roleMiddleware(api.usrSvc, user.RoleStudent))
}

func (api *courseApi) list(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	listings, err := api.svc.List(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if listings == nil {
		listings = []course.Listing{}
	}
	return ctx.JSON(http.StatusOK, listings)
}

func (api *courseApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data course.NewCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	// teachers create their own courses unless they say otherwise
	if data.TeacherID == "" && usr.IsTeacher() {
		data.TeacherID = usr.ID
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) show(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	detail, err := api.svc.Show(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "showing course")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if data.TeacherID == "" && usr.IsTeacher() {
		data.TeacherID = usr.ID
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) delete(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data course.NewEnrollment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) submitQuizAttempt(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return err
	}

	var data QuizAttemptRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizAttemptRequest")
	}

	attempt, err := api.svc.SubmitQuizAttempt(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("quizId"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz attempt")
	}
	return ctx.JSON(http.StatusCreated, attempt)
}

// QuizAttemptRequest maps question IDs to answers.
type QuizAttemptRequest struct {
	Answers map[string]string `json:"answers"`
}
