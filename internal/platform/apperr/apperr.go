// Package apperr is the error model shared by every library package.
// Each failure carries a stable Code that clients can switch on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNoCopiesAvailable Code = "NO_COPIES_AVAILABLE"
	CodeBookInUse         Code = "BOOK_IN_USE"
	CodeOverReturn        Code = "OVER_RETURN"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func ErrBookInUse(msg string) *APIError    { return &APIError{Code: CodeBookInUse, Message: msg} }

func ErrInvalidTransition(from, to string) *APIError {
	return &APIError{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot move request from %s to %s", from, to),
	}
}

func ErrNoCopiesAvailable() *APIError {
	return &APIError{Code: CodeNoCopiesAvailable, Message: "no copies available"}
}

func ErrOverReturn() *APIError {
	return &APIError{Code: CodeOverReturn, Message: "available copies would exceed total copies"}
}

// CodeOf returns the Code carried by err, or CodeInternal for anything else.
func CodeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	var api *APIError
	return errors.As(err, &api) && api.Code == code
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeConflict, CodeInvalidTransition, CodeNoCopiesAvailable, CodeBookInUse, CodeOverReturn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type ErrorDTO struct {
	Error APIError `json:"error"`
}

func Body(code Code, msg string) ErrorDTO {
	return ErrorDTO{Error: APIError{Code: code, Message: msg}}
}

// BodyFrom renders err for clients. Errors outside the taxonomy never leak
// their text.
func BodyFrom(err error) ErrorDTO {
	var api *APIError
	if errors.As(err, &api) {
		return Body(api.Code, api.Message)
	}
	return Body(CodeInternal, "internal error")
}
