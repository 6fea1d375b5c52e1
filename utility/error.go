package utility

import "errors"

// ErrorCode classifies failures so callers can branch on them
// without string matching.
type ErrorCode string

const (
	CodeValidation   ErrorCode = "ValidationError"
	CodeNotFound     ErrorCode = "NotFound"
	CodeConflict     ErrorCode = "Conflict"
	CodeNotConnected ErrorCode = "NotConnected"
	CodeTimeout      ErrorCode = "Timeout"
	CodeInternal     ErrorCode = "InternalError"
)

type AppError struct {
	code    ErrorCode
	message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) Code() ErrorCode {
	return e.code
}

func Err(m string) error {
	return &AppError{code: CodeInternal, message: m}
}

func ValidationErr(m string) error {
	return &AppError{code: CodeValidation, message: m}
}

func NotFoundErr(m string) error {
	return &AppError{code: CodeNotFound, message: m}
}

func ConflictErr(m string) error {
	return &AppError{code: CodeConflict, message: m}
}

func NotConnectedErr(m string) error {
	return &AppError{code: CodeNotConnected, message: m}
}

func TimeoutErr(m string) error {
	return &AppError{code: CodeTimeout, message: m}
}

func InternalErr(m string, cause error) error {
	return &AppError{code: CodeInternal, message: m, cause: cause}
}

// CodeOf returns the error's code, or CodeInternal for errors
// raised outside this package.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.code
	}
	return CodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
