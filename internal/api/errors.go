package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// Code is the machine readable error code returned to clients
type Code string

const (
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeValidation        Code = "VALIDATION_FAILED"
	CodeUnauthenticated   Code = "UNAUTHENTICATED"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeAccountBanned     Code = "ACCOUNT_BANNED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeAlreadyExists     Code = "ALREADY_EXISTS"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeStaleState        Code = "STALE_STATE"
	CodeInvalidState      Code = "INVALID_STATE"
	CodeRelayFailed       Code = "RELAY_FAILED"
	CodeUnavailable       Code = "UNAVAILABLE"
	CodeInternal          Code = "INTERNAL"
)

// HTTPStatus maps a code to its response status
func (c Code) HTTPStatus() int {
	switch c {
	case CodeInvalidRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeAccountBanned:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeStaleState:
		return http.StatusConflict
	case CodeInvalidTransition, CodeInvalidState:
		return http.StatusUnprocessableEntity
	case CodeRelayFailed:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Classify maps a domain error to its code and client message
func Classify(err error) (Code, string) {
	var te *lifecycle.TransitionError
	var ve validator.ValidationErrors

	switch {
	case errors.As(err, &te):
		switch te.Kind {
		case lifecycle.KindUnauthorized:
			return CodePermissionDenied, te.Error()
		case lifecycle.KindStaleState:
			return CodeStaleState, te.Error()
		default:
			return CodeInvalidTransition, te.Error()
		}
	case errors.As(err, &ve):
		return CodeValidation, validationMessage(ve)
	case errors.Is(err, service.ErrForbidden):
		return CodePermissionDenied, "permission denied"
	case errors.Is(err, service.ErrInvalidCredentials):
		return CodeUnauthenticated, "invalid credentials"
	case errors.Is(err, service.ErrBanned):
		return CodeAccountBanned, "account is banned"
	case errors.Is(err, service.ErrInvalidInput):
		return CodeInvalidRequest, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		return CodeNotFound, "not found"
	case errors.Is(err, repository.ErrEmailExists):
		return CodeAlreadyExists, "email already registered"
	case errors.Is(err, service.ErrNotInTransit), errors.Is(err, service.ErrNoRecipient):
		return CodeInvalidState, err.Error()
	case errors.Is(err, service.ErrRelayFailed):
		return CodeRelayFailed, err.Error()
	case errors.Is(err, service.ErrRelayNotConfigured):
		return CodeUnavailable, err.Error()
	default:
		return CodeInternal, "internal error"
	}
}

func validationMessage(ve validator.ValidationErrors) string {
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(fields, "; ")
}

// WriteError writes err as an ErrorResponse
func WriteError(w http.ResponseWriter, err error) {
	code, msg := Classify(err)
	Write(w, code, msg)
}

// Write writes an ErrorResponse with the status of code
func Write(w http.ResponseWriter, code Code, message string) {
	RespondJSON(w, code.HTTPStatus(), ErrorResponse{Code: code, Message: message})
}

func BadRequest(w http.ResponseWriter, message string) {
	Write(w, CodeInvalidRequest, message)
}

// RespondJSON writes v as JSON with status
func RespondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
