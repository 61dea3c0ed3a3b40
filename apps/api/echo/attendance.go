package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/user"
)

type attendanceApi struct {
	svc *attendance.Service
}

func registerAttendanceAPI(g *echo.Group, auth echo.MiddlewareFunc, deps *ServerDeps) {
	api := attendanceApi{svc: deps.AttendanceSvc}

	ag := g.Group("/attendance", auth)
	ag.POST("/mark", api.mark, roleMiddleware(user.RoleTeacher))
	ag.GET("/for-parents", api.forParent, roleMiddleware(user.RoleParent))
	ag.GET("/section", api.bySection)
	ag.GET("/student/:id", api.forStudent)
	ag.GET("/teacher/:id", api.forTeacher, roleMiddleware(user.RoleTeacher, user.RoleAdmin))
	ag.GET("/today-status", api.todayStatus, roleMiddleware(user.RoleTeacher))
}

// Handlers

func (api *attendanceApi) mark(ctx echo.Context) error {
	marker, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.MarkAttendance
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	res, err := api.svc.Mark(ctx.Request().Context(), marker, data)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	return respond(ctx, http.StatusCreated, "Attendance marked successfully", res)
}

func (api *attendanceApi) bySection(ctx echo.Context) error {
	dr, err := bindDateRange(ctx, core.TodayRange)
	if err != nil {
		return err
	}

	report, err := api.svc.BySection(ctx.Request().Context(), ctx.QueryParam("grade"), ctx.QueryParam("section"), dr)
	if err != nil {
		return errors.Wrap(err, "querying section attendance")
	}
	return respondOK(ctx, "Attendance records fetched successfully", report)
}

func (api *attendanceApi) forStudent(ctx echo.Context) error {
	viewer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	dr, err := bindDateRange(ctx, core.CurrentMonthRange)
	if err != nil {
		return err
	}

	report, err := api.svc.ForStudent(ctx.Request().Context(), viewer, ctx.Param("id"), dr)
	if err != nil {
		return errors.Wrap(err, "querying student attendance")
	}
	return respondOK(ctx, "Student attendance fetched successfully", report)
}

func (api *attendanceApi) forTeacher(ctx echo.Context) error {
	viewer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	dr, err := bindDateRange(ctx, core.TodayRange)
	if err != nil {
		return err
	}
	page, err := bindPagination(ctx, attendance.TeacherPageLimit)
	if err != nil {
		return err
	}

	report, err := api.svc.ForTeacher(ctx.Request().Context(), viewer, ctx.Param("id"), attendance.TeacherQuery{
		Range:   dr,
		Grade:   ctx.QueryParam("grade"),
		Section: ctx.QueryParam("section"),
		Page:    page,
	})
	if err != nil {
		return errors.Wrap(err, "querying teacher attendance")
	}
	return respondOK(ctx, "Teacher attendance records fetched successfully", report)
}

func (api *attendanceApi) todayStatus(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	progress, err := api.svc.TodayStatus(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying today's status")
	}
	msg := "Today's attendance status fetched successfully"
	if len(progress) == 0 {
		msg = "No sections assigned to this teacher"
	}
	return respondOK(ctx, msg, echo.Map{"sections": progress})
}

func (api *attendanceApi) forParent(ctx echo.Context) error {
	parent, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	dr, err := bindDateRange(ctx, core.CurrentMonthRange)
	if err != nil {
		return err
	}

	report, err := api.svc.ForParent(ctx.Request().Context(), parent, dr)
	if err != nil {
		return errors.Wrap(err, "querying children attendance")
	}
	msg := "Children's attendance fetched successfully"
	if len(report.Children) == 0 {
		msg = "No children found for this parent"
	}
	return respondOK(ctx, msg, report)
}
