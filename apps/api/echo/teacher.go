package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

type teacherApi struct {
	svc      *teacher.Service
	validate *validator.Validate
}

func registerTeacherAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *ServerDeps) {
	api := teacherApi{svc: deps.TeacherSvc, validate: deps.Validate}
	admin := roleMiddleware(user.RoleAdmin)

	tg := g.Group("/teachers", auth)
	tg.GET("", api.query, admin)
	tg.GET("/dashboard", api.dashboard, roleMiddleware(user.RoleTeacher))
	tg.POST("", api.create, admin)
	tg.PATCH("/:id", api.update, admin)
	tg.DELETE("/:id", api.destroy, admin)
}

// Handlers

func (api *teacherApi) query(ctx echo.Context) error {
	page, err := bindPagination(ctx, core.DefaultPageLimit)
	if err != nil {
		return err
	}
	filter := teacher.QueryFilter{
		Search:   ctx.QueryParam("search"),
		Grade:    core.CleanString(ctx.QueryParam("grade")),
		Section:  core.CleanString(ctx.QueryParam("section")),
		Page:     &page,
		Ordering: teacher.NewOrdering(ctx.QueryParam("sortField"), ctx.QueryParam("sortOrder")),
	}

	teachers, total, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []teacher.Teacher{}
	}
	return respondPage(ctx, "Teachers fetched successfully", teachers, page.Info(total))
}

func (api *teacherApi) dashboard(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	t, err := api.svc.GetByUser(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "finding teacher profile")
	}
	t.User = nil
	return respondOK(ctx, "Teacher dashboard data fetched successfully", echo.Map{"user": usr, "teacher": t})
}

func (api *teacherApi) create(ctx echo.Context) error {
	var data teacher.NewTeacher
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Add(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "adding teacher")
	}
	return respond(ctx, http.StatusCreated, "Teacher added successfully", t)
}

func (api *teacherApi) update(ctx echo.Context) error {
	var data teacher.UpdateTeacher
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating teacher")
	}
	return respondOK(ctx, "Teacher information updated successfully", t)
}

func (api *teacherApi) destroy(ctx echo.Context) error {
	if err := api.svc.Remove(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "removing teacher")
	}
	return respondOK(ctx, "Teacher removed successfully", nil)
}
