// Package apperr defines the stable error taxonomy exposed by the API.
// Every failure a handler returns to a client carries one of these codes;
// anything else is surfaced as PERSISTENCE_ERROR without detail.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeEmptyCart         = "EMPTY_CART"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeTextbookNotFound  = "TEXTBOOK_NOT_FOUND"
	CodeCartItemNotFound  = "CART_ITEM_NOT_FOUND"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeSchoolNotFound    = "SCHOOL_NOT_FOUND"
	CodeUserNotFound      = "USER_NOT_FOUND"
	CodeCategoryNotFound  = "CATEGORY_NOT_FOUND"
	CodeAccessDenied      = "ACCESS_DENIED"
	CodeInvalidCredential = "INVALID_CREDENTIALS"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeDuplicate         = "DUPLICATE"
	CodePersistence       = "PERSISTENCE_ERROR"
)

var statusByCode = map[string]int{
	CodeValidation:        http.StatusBadRequest,
	CodeEmptyCart:         http.StatusBadRequest,
	CodeInsufficientStock: http.StatusConflict,
	CodeTextbookNotFound:  http.StatusNotFound,
	CodeCartItemNotFound:  http.StatusNotFound,
	CodeOrderNotFound:     http.StatusNotFound,
	CodeSchoolNotFound:    http.StatusNotFound,
	CodeUserNotFound:      http.StatusNotFound,
	CodeCategoryNotFound:  http.StatusNotFound,
	CodeAccessDenied:      http.StatusForbidden,
	CodeInvalidCredential: http.StatusUnauthorized,
	CodeInvalidTransition: http.StatusBadRequest,
	CodeDuplicate:         http.StatusConflict,
	CodePersistence:       http.StatusInternalServerError,
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the code to the response status; unknown codes are 500.
func (e *Error) HTTPStatus() int {
	if status, ok := statusByCode[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap keeps the underlying error reachable through errors.Unwrap while the
// client only ever sees code and message.
func Wrap(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// From extracts an *Error from err, or folds it into PERSISTENCE_ERROR.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodePersistence, "an unexpected storage error occurred", err)
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code string) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}
