package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/slok/codesbx/internal/model"
	"github.com/slok/codesbx/internal/submission"
)

// Error codes of the error envelope.
const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeInvalidJSON     = "INVALID_JSON"
	CodePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// apiError is an error with everything needed to render the error envelope.
type apiError struct {
	status int
	body   errorBody
}

func (e *apiError) Error() string { return fmt.Sprintf("%d %s: %s", e.status, e.body.Code, e.body.Message) }

// toAPIError maps an error into its HTTP representation. Internal error
// messages are hidden when production is set.
func toAPIError(err error, requestID string, production bool) *apiError {
	var aerr *apiError
	if errors.As(err, &aerr) {
		return aerr
	}

	var verr *submission.ValidationError
	if errors.As(err, &verr) {
		var details any
		if verr.Field != "" {
			details = map[string]string{"field": verr.Field}
		}
		return &apiError{status: http.StatusBadRequest, body: errorBody{Code: CodeValidation, Message: verr.Message, Details: details}}
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return &apiError{status: http.StatusRequestEntityTooLarge, body: errorBody{
			Code:    CodePayloadTooLarge,
			Message: fmt.Sprintf("Request body larger than %d bytes", maxBytesErr.Limit),
		}}
	}

	switch {
	case errors.Is(err, submission.ErrInvalidJSON):
		return &apiError{status: http.StatusBadRequest, body: errorBody{Code: CodeInvalidJSON, Message: "Invalid JSON in request body"}}
	case errors.Is(err, model.ErrNotValid):
		return &apiError{status: http.StatusBadRequest, body: errorBody{Code: CodeValidation, Message: err.Error()}}
	case errors.Is(err, model.ErrNotFound):
		return &apiError{status: http.StatusNotFound, body: errorBody{Code: CodeNotFound, Message: err.Error()}}
	}

	msg := err.Error()
	if production {
		msg = "An internal server error occurred"
	}
	return &apiError{status: http.StatusInternalServerError, body: errorBody{Code: CodeInternal, Message: msg, RequestID: requestID}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func writeAPIError(w http.ResponseWriter, e *apiError) {
	body := e.body
	writeJSON(w, e.status, envelope{Success: false, Error: &body})
}
