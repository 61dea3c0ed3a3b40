package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

var (
	errGradeSectionRequired = errors.New("grade and section are required")
	errNoStudents           = echo.NewHTTPError(http.StatusNotFound, "No students found")
)

type studentApi struct {
	svc        *student.Service
	teacherSvc *teacher.Service
	validate   *validator.Validate
}

func registerStudentAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *ServerDeps) {
	api := studentApi{svc: deps.StudentSvc, teacherSvc: deps.TeacherSvc, validate: deps.Validate}
	admin := roleMiddleware(user.RoleAdmin)

	sg := g.Group("/student", auth)
	sg.GET("", api.query, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	sg.GET("/by-grade-and-section", api.bySection, roleMiddleware(user.RoleAdmin, user.RoleTeacher))
	sg.GET("/by-parent", api.byParent, roleMiddleware(user.RoleAdmin, user.RoleParent))
	sg.GET("/:id", api.retrieve)
	sg.PATCH("/:id", api.update, admin)
	sg.DELETE("/:id", api.destroy, admin)
}

// Handlers

func (api *studentApi) query(ctx echo.Context) error {
	page, err := bindPagination(ctx, core.DefaultPageLimit)
	if err != nil {
		return err
	}
	filter := student.QueryFilter{
		Search:  ctx.QueryParam("search"),
		Grade:   ctx.QueryParam("grade"),
		Section: ctx.QueryParam("section"),
		Page:    &page,
	}

	students, total, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return respondPage(ctx, "Students fetched successfully", students, page.Info(total))
}

func (api *studentApi) bySection(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	grade := core.CleanString(ctx.QueryParam("grade"))
	section := core.CleanString(ctx.QueryParam("section"))
	if grade == "" || section == "" {
		return core.NewValidationError(errGradeSectionRequired,
			core.FieldError{Field: "grade", Error: errGradeSectionRequired.Error()},
			core.FieldError{Field: "section", Error: errGradeSectionRequired.Error()},
		)
	}

	if usr.IsTeacher() {
		if _, err = api.teacherSvc.EnsureAssigned(ctx.Request().Context(), usr, grade, section); err != nil {
			return errors.Wrap(err, "checking teacher assignment")
		}
	}

	students, err := api.svc.Roster(ctx.Request().Context(), grade, section)
	if err != nil {
		return errors.Wrap(err, "listing section roster")
	}
	if len(students) == 0 {
		return errNoStudents
	}
	return respondOK(ctx, "Students fetched successfully", students)
}

func (api *studentApi) byParent(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	parentID := usr.ID
	if usr.IsAdmin() {
		if parentID = core.CleanString(ctx.QueryParam("parentId")); parentID == "" {
			err = errors.New("parentId is required")
			return core.NewValidationError(err, core.FieldError{Field: "parentId", Error: err.Error()})
		}
	}

	students, err := api.svc.ByParent(ctx.Request().Context(), parentID)
	if err != nil {
		return errors.Wrap(err, "listing parent's students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return respondOK(ctx, "Students fetched successfully", students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	st, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	if !st.VisibleTo(usr) {
		return errHttpForbidden
	}
	return respondOK(ctx, "Student details fetched successfully", st)
}

func (api *studentApi) update(ctx echo.Context) error {
	var data student.UpdateStudent
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return respondOK(ctx, "Student information updated successfully", st)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	isLast, err := api.svc.Remove(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "removing student")
	}
	return respondOK(ctx, "Student removed successfully", echo.Map{"isLastStudent": isLast})
}
