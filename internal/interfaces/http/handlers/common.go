// Package handlers contains the gin request handlers of the valuation API.
// Handlers translate between the HTTP surface and the application services:
// they parse parameters, delegate, and render results or classified errors.
package handlers

import (
	stderrors "errors"

	"github.com/gin-gonic/gin"

	"github.com/motorintel/comparables/pkg/errors"
)

// errorBody is the wire shape of a failed request.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// renderError maps any error onto its HTTP status and the stable error body.
// Errors without an AppError in their chain are reported as internal without
// leaking their message.
func renderError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.Internal("internal error")
	}
	c.JSON(appErr.Code.HTTPStatus(), errorResponse{Error: errorBody{
		Code:    appErr.Code.String(),
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}})
}
