package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeRetrieval    = "RETRIEVAL_ERROR"
	CodeExtraction   = "EXTRACTION_ERROR"
	CodePersistence  = "PERSISTENCE_ERROR"
	CodeInternal     = "INTERNAL_ERROR"
	CodeConfig       = "CONFIG_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error that corresponds to the error code.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrRetrieval    = errors.New("document retrieval failed")
	ErrExtraction   = errors.New("document extraction failed")
	ErrPersistence  = errors.New("persistence failed")
	ErrInternal     = errors.New("internal error")
)

var sentinels = map[string]error{
	CodeNotFound:     ErrNotFound,
	CodeInvalidInput: ErrInvalidInput,
	CodeRetrieval:    ErrRetrieval,
	CodeExtraction:   ErrExtraction,
	CodePersistence:  ErrPersistence,
	CodeInternal:     ErrInternal,
	CodeConfig:       ErrInvalidInput,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NotFound(message string, cause error) error {
	return NewAppError(CodeNotFound, message, cause)
}

func InvalidInput(message string) error {
	return NewAppError(CodeInvalidInput, message, nil)
}

func Retrieval(message string, cause error) error {
	return NewAppError(CodeRetrieval, message, cause)
}

func Extraction(message string, cause error) error {
	return NewAppError(CodeExtraction, message, cause)
}

func Persistence(message string, cause error) error {
	return NewAppError(CodePersistence, message, cause)
}

func Internal(message string, cause error) error {
	return NewAppError(CodeInternal, message, cause)
}

// ToStatus converts an application error into a gRPC status error.
// Internal failures are reported with a generic message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrRetrieval):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, ErrExtraction):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
