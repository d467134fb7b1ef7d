package handler

import (
	"errors"
	"net/http"

	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
	Fields  []string    `json:"fields,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(kind apperrors.Kind, message string) *Response {
	return &Response{
		Status:  "error",
		Code:    string(kind),
		Message: message,
	}
}

// ErrorResponseFor renders err as the error envelope. Wrapped causes are
// never exposed; unknown errors become a generic internal error.
func ErrorResponseFor(err error) (int, *Response) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, NewErrorResponse(apperrors.KindInternal, "internal server error")
	}
	resp := NewErrorResponse(appErr.Kind, appErr.Message)
	resp.Fields = appErr.Fields
	return appErr.StatusCode(), resp
}
