package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/saaskit/backend/internal/models"
)

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error   string            `json:"error"`             // Error message
	Code    string            `json:"code,omitempty"`    // Machine readable error code
	Details map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	sendError(w, ErrorResponse{Error: message, Code: codeForStatus(statusCode)}, statusCode, validationErr)
}

func sendError(w http.ResponseWriter, errorResp ErrorResponse, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	var fieldErrs validator.ValidationErrors
	if validationErr != nil && errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

// StatusForError maps the error taxonomy onto an HTTP status, a code and a user-facing
// message. Unknown errors are reported as internal without leaking their text.
func StatusForError(err error) (int, string, string) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", "Unauthorized"
	case errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount", "Invalid amount"
	case errors.Is(err, models.ErrInsufficientCredits):
		return http.StatusBadRequest, "insufficient_credits", "Insufficient credits"
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusBadRequest, "account_not_found", "Credit account not found"
	case errors.Is(err, models.ErrSetupAlreadyComplete):
		return http.StatusConflict, "setup_already_complete", "Setup has already been completed"
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusBadRequest, "invalid_configuration", err.Error()
	case errors.Is(err, models.ErrExternalService):
		return http.StatusInternalServerError, "external_service_error", err.Error()
	case errors.Is(err, models.ErrStorage):
		return http.StatusInternalServerError, "storage_error", "Internal server error"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal server error"
	}
}

// WriteError sends the JSON envelope for a taxonomy error.
func WriteError(w http.ResponseWriter, err error) {
	status, code, message := StatusForError(err)
	sendError(w, ErrorResponse{Error: message, Code: code}, status, nil)
}

func codeForStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	default:
		if statusCode >= http.StatusInternalServerError {
			return "internal_error"
		}
		return ""
	}
}
