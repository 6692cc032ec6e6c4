package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error { return &ServiceError{Code: ErrorInvalid, Message: msg} }

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrSubmissionNotFound is returned when a submission id is unknown.
	ErrSubmissionNotFound = &ServiceError{Code: ErrorNotFound, Message: "submission not found"}
	// ErrInvalidReceipt flags a receipt that fails signature or expiry checks.
	ErrInvalidReceipt = &ServiceError{Code: ErrorUnauthorized, Message: "invalid receipt"}
)
