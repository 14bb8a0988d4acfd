package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the JSON envelope for every error returned by the API
type ErrorResponse struct {
	Error string `json:"error"`
}

// CustomErrorHandler renders errors as a consistent JSON envelope.
// Internal errors are logged with their cause but surfaced with a generic
// message so datastore details never leak to the caller.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := ""

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
	}

	if message == "" {
		switch code {
		case http.StatusNotFound:
			message = "resource not found"
		case http.StatusUnauthorized:
			message = "please log in to continue"
		case http.StatusForbidden:
			message = "you don't have permission to access this resource"
		case http.StatusBadRequest:
			message = "the request could not be processed"
		default:
			message = "something went wrong, please try again later"
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
		// Never expose internals
		message = "something went wrong, please try again later"
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: message})
}
