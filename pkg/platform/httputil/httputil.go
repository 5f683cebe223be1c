package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "quickfi/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent, so an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates domain errors into HTTP status codes and error bodies.
// Errors without a domain code are internal and their text is not exposed.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	response := map[string]string{
		"error": DomainCodeToHTTPCode(code),
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		response["error_description"] = domainErr.Message
	}
	WriteJSON(w, DomainCodeToHTTPStatus(code), response)
}

func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnavailable, dErrors.CodeNotConfigured:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnavailable:
		return "service_unavailable"
	case dErrors.CodeNotConfigured:
		return "not_configured"
	case dErrors.CodeTimeout:
		return "timeout"
	default:
		return "internal_error"
	}
}
