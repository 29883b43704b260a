package client

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidCredentials indicates the email or password was rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrProfileNotFound indicates the account exists but has no profile or role.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrEmailTaken indicates registration used an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrConnectivity wraps every transport failure.
	ErrConnectivity = errors.New("server unreachable")
	// ErrUnauthenticated indicates the session is missing or no longer valid.
	ErrUnauthenticated = errors.New("not signed in")
	// ErrForbidden indicates the current role may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates the resource does not exist or is out of scope.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates the request conflicts with current state.
	ErrConflict = errors.New("conflict")
)

// ConnectivityMessage is shown for any failure to reach the server.
const ConnectivityMessage = "Failed to connect to the server. Please try again."

// APIError is a non-2xx response decoded from the server envelope.
type APIError struct {
	Status  int
	Message string
	Details map[string]interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is maps the HTTP status onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	default:
		return false
	}
}

// Redirect returns the page the server asked the client to move to, if any.
func (e *APIError) Redirect() string {
	if e.Details == nil {
		return ""
	}
	target, _ := e.Details["redirect"].(string)
	return target
}

// ValidationError lists per-field failures, either found locally or returned by the server.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.summary()
}

func (e *ValidationError) summary() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	messages := make([]string, 0, len(keys))
	for _, key := range keys {
		messages = append(messages, e.Fields[key])
	}
	return strings.Join(messages, "; ")
}

// FailureMessage turns an error from this package into a message fit for display.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.summary()
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrProfileNotFound):
		return "User not found. Please contact the administrator."
	case errors.Is(err, ErrEmailTaken):
		return "An account with this email already exists."
	case errors.Is(err, ErrConnectivity):
		return ConnectivityMessage
	case errors.Is(err, ErrUnauthenticated):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action."
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return ConnectivityMessage
}

func localValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			fields[field] = field + " is required"
		case "min":
			fields[field] = field + " must be at least " + fieldErr.Param() + " characters"
		case "max":
			fields[field] = field + " must be at most " + fieldErr.Param() + " characters"
		case "email":
			fields[field] = field + " must be a valid email address"
		case "oneof":
			fields[field] = field + " must be one of: " + fieldErr.Param()
		case "url":
			fields[field] = field + " must be a valid URL"
		case "branch":
			fields[field] = field + " must be a listed department"
		default:
			fields[field] = field + " is invalid"
		}
	}
	return &ValidationError{Fields: fields}
}

func remoteValidationError(apiErr *APIError) error {
	fields := make(map[string]string, len(apiErr.Details))
	for key, value := range apiErr.Details {
		if message, ok := value.(string); ok {
			fields[key] = message
		}
	}
	if len(fields) == 0 {
		return apiErr
	}
	return &ValidationError{Fields: fields}
}
