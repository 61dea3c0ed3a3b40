package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/academia/core"
)

type (
	// Response is the envelope of every JSON body the API sends.
	Response struct {
		Success    bool              `json:"success"`
		Message    string            `json:"message,omitempty"`
		Data       interface{}       `json:"data,omitempty"`
		Pagination *core.PageInfo    `json:"pagination,omitempty"`
		Errors     map[string]string `json:"errors,omitempty"`
	}
)

func respond(ctx echo.Context, code int, msg string, data interface{}) error {
	return ctx.JSON(code, Response{Success: true, Message: msg, Data: data})
}

func respondOK(ctx echo.Context, msg string, data interface{}) error {
	return respond(ctx, http.StatusOK, msg, data)
}

func respondPage(ctx echo.Context, msg string, data interface{}, info core.PageInfo) error {
	return ctx.JSON(http.StatusOK, Response{Success: true, Message: msg, Data: data, Pagination: &info})
}
