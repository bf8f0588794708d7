package http

import (
	"errors"
	"net/http"

	"parking-dashboard/internal/parkingapi"
	"parking-dashboard/internal/service"
)

// Response codes mirror the parking API envelope so the front end handles
// both the same way.
const (
	CodeSuccess         = parkingapi.CodeSuccess
	CodeInvalidInput    = 1001
	CodeUnauthenticated = 1002
	CodeForbidden       = 1003
	CodeUpstream        = 1004
	CodeInternal        = 9999
)

type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

func successResponse(result interface{}) envelope {
	return envelope{
		Code:   CodeSuccess,
		Result: result,
	}
}

func errorResponse(code int, message string) envelope {
	return envelope{
		Code:    code,
		Message: message,
	}
}

// classify maps an error to an HTTP status and envelope code.
func classify(err error) (int, envelope) {
	var apiErr *parkingapi.APIError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse(CodeInvalidInput, err.Error())
	case errors.Is(err, parkingapi.ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse(CodeUnauthenticated, "session expired")
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, errorResponse(apiErr.Code, apiErr.Message)
	case errors.Is(err, parkingapi.ErrUpstream):
		return http.StatusBadGateway, errorResponse(CodeUpstream, "parking api unavailable")
	default:
		return http.StatusInternalServerError, errorResponse(CodeInternal, "internal error")
	}
}
