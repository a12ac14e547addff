package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/service/validate"
)

const (
	ValidationErrorType = "validation_failed"
	DecodingErrorType   = "decoding_failed"
	ServiceErrorType    = "service_error"

	NotFoundType            = "not_found"
	InvalidInputType        = "invalid_input"
	InsufficientBalanceType = "insufficient_balance"
	InvalidStateType        = "invalid_state"
	AlreadyExistsType       = "already_exists"
	TransactionFailedType   = "transaction_failed"
	UnauthorizedType        = "unauthorized"
	ForbiddenType           = "forbidden"
)

// Request bodies are small JSON documents
const maxBodySize = 64 << 10

type Struct any

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	JSONWithStatus(w, data, http.StatusOK)
}

// Render ServiceError
func ServiceError(w http.ResponseWriter, error string, code int) {
	Kind(w, ServiceErrorType, error, code)
}

// Render error of the given kind
func Kind(w http.ResponseWriter, kind string, message string, code int) {
	response := ErrorResponse{
		Error:   kind,
		Message: message,
	}

	JSONWithStatus(w, response, code)
}

// Render error returned by a service
// Business errors are mapped by kind, anything else is reported as transient failure
func Error(w http.ResponseWriter, err error) {
	var balanceErr *apperrors.InsufficientBalanceError

	switch {
	case errors.As(err, &balanceErr):
		Kind(w, InsufficientBalanceType, balanceErr.Error(), http.StatusPaymentRequired)
	case errors.Is(err, apperrors.ErrBalanceInsufficient):
		Kind(w, InsufficientBalanceType, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, apperrors.ErrNotFound):
		Kind(w, NotFoundType, err.Error(), http.StatusNotFound)
	case errors.Is(err, apperrors.ErrInvalidInput):
		Kind(w, InvalidInputType, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, apperrors.ErrInvalidState):
		Kind(w, InvalidStateType, err.Error(), http.StatusConflict)
	case errors.Is(err, apperrors.ErrEntryAlreadyExists), errors.Is(err, apperrors.ErrAccountAlreadyExists):
		Kind(w, AlreadyExistsType, err.Error(), http.StatusConflict)
	default:
		Kind(w, TransactionFailedType, "Please try again later", http.StatusServiceUnavailable)
	}
}

// Render json DecodeError
func DecodeError(w http.ResponseWriter, err error) {
	response := ErrorResponse{
		Error:   DecodingErrorType,
		Message: "",
	}

	// Try to provide more specific error message based on error type
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		response.Message = fmt.Sprintf("Invalid data type for field '%s'", typeErr.Field)
	default:
		response.Message = fmt.Sprintf("Failed to parse JSON: %s", err.Error())
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// Render ValidationErrors
func ValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	response := ErrorResponse{
		Error:   ValidationErrorType,
		Message: "Request validation failed",
		Fields:  make(map[string]string, len(errs)),
	}

	// Create user-friendly error messages based on validation tag
	for _, fieldError := range errs {
		var message string
		switch fieldError.Tag() {
		case "required":
			message = "This field is required"
		case "min":
			message = fmt.Sprintf("Value is too short (minimum %s)", fieldError.Param())
		case "max":
			message = fmt.Sprintf("Value is too long (maximum %s)", fieldError.Param())
		case "gt":
			message = fmt.Sprintf("Value must be greater than %s", fieldError.Param())
		case "waste_category":
			message = "Unknown waste category"
		case "entry_status", "redemption_status":
			message = "Unknown status"
		default:
			message = "Invalid value"
		}

		response.Fields[fieldError.Field()] = message
	}

	JSONWithStatus(w, response, http.StatusBadRequest)
}

// BindAndValidate decodes JSON request body into type T and validates it using struct tags.
// Returns the decoded value and writes appropriate error responses for decoding or validation failures.
func BindAndValidate[T Struct](w http.ResponseWriter, r *http.Request) (T, error) {
	var value T

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	err := json.NewDecoder(r.Body).Decode(&value)
	if err != nil {
		DecodeError(w, err)
		return value, err
	}

	err = validate.Struct(value)
	if err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return value, err
		}
		ValidationErrors(w, errs)
		return value, err
	}

	return value, nil
}

// JSONWithStatus sends data as json and enforces status code
func JSONWithStatus(w http.ResponseWriter, data any, code int) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)

	if err := enc.Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
