package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/admission"
	"github.com/trezcool/academia/core/user"
)

const applicationsPageLimit = 10

var errInvalidAdmissionStatus = errors.New("status must be one of PENDING, APPROVED, REJECTED, WAITLISTED or CANCELLED")

type admissionApi struct {
	svc      *admission.Service
	validate *validator.Validate
}

func registerAdmissionAPI(g *echo.Group, auth, limit echo.MiddlewareFunc, deps *ServerDeps) {
	api := admissionApi{svc: deps.AdmissionSvc, validate: deps.Validate}

	ag := g.Group("/admission")
	ag.POST("/submit-application", api.submit, limit)
	ag.PUT("/review/:id", api.review, auth, roleMiddleware(user.RoleAdmin))
	ag.GET("/applications", api.query, auth, roleMiddleware(user.RoleAdmin))
}

// Handlers

func (api *admissionApi) submit(ctx echo.Context) error {
	var data admission.NewApplication
	if err := bindBody(ctx, &data); err != nil {
		return err
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Submit(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting application")
	}
	return respond(ctx, http.StatusCreated, "Admission request submitted successfully", req)
}

func (api *admissionApi) review(ctx echo.Context) error {
	reviewer, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data admission.ReviewRequest
	if err = bindBody(ctx, &data); err != nil {
		return err
	}

	res, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), data, reviewer)
	if err != nil {
		return errors.Wrap(err, "reviewing application")
	}

	msg := fmt.Sprintf("Application %s successfully", strings.ToLower(string(data.Status)))
	if res.Student != nil {
		msg = "Application approved and student enrolled successfully"
	}
	return respondOK(ctx, msg, res)
}

func (api *admissionApi) query(ctx echo.Context) error {
	page, err := bindPagination(ctx, applicationsPageLimit)
	if err != nil {
		return err
	}
	filter := admission.QueryFilter{
		Status:    admission.Status(strings.ToUpper(core.CleanString(ctx.QueryParam("status")))),
		Search:    ctx.QueryParam("search"),
		Ascending: strings.ToLower(ctx.QueryParam("sort")) != "ztoa",
		Page:      page,
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return core.NewValidationError(errInvalidAdmissionStatus, core.FieldError{Field: "status", Error: errInvalidAdmissionStatus.Error()})
	}

	reqs, total, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying applications")
	}
	if reqs == nil {
		reqs = []admission.Request{}
	}
	return respondPage(ctx, "Admission applications fetched successfully", reqs, page.Info(total))
}
