package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var errInvalidPageParam = errors.New("must be a positive integer")

// bindBody decodes the JSON body into dst; malformed bodies are the caller's fault.
func bindBody(ctx echo.Context, dst interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(ctx, dst); err != nil {
		var herr *echo.HTTPError
		if errors.As(err, &herr) {
			return echo.NewHTTPError(herr.Code, errInvalidBody.Message).SetInternal(herr.Internal)
		}
		return errors.Wrap(err, "binding request body")
	}
	return nil
}

// bindPagination reads the `page` & `limit` query parameters.
func bindPagination(ctx echo.Context, defaultLimit int) (core.Pagination, error) {
	var fldErrs []core.FieldError
	parse := func(name string) int {
		raw := core.CleanString(ctx.QueryParam(name))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fldErrs = append(fldErrs, core.FieldError{Field: name, Error: errInvalidPageParam.Error()})
		}
		return n
	}

	page, limit := parse("page"), parse("limit")
	if fldErrs != nil {
		return core.Pagination{}, core.NewValidationError(errors.New("invalid pagination"), fldErrs...)
	}
	return core.NewPagination(page, limit, defaultLimit), nil
}

// bindDateRange reads either a single `date` or the `startDate` & `endDate` query parameters.
func bindDateRange(ctx echo.Context, fallback func() core.DateRange) (core.DateRange, error) {
	if date := core.CleanString(ctx.QueryParam("date")); date != "" {
		return core.ParseDateRange(date, date, fallback)
	}
	return core.ParseDateRange(ctx.QueryParam("startDate"), ctx.QueryParam("endDate"), fallback)
}
