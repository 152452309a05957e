package usecase

import "errors"

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeDuplicate    = "DUPLICATE_ENTRY"
	CodeInternal     = "INTERNAL_ERROR"
)

type DomainError struct {
	Code    string
	Message string
	Details []string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func NotFound(message string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: message}
}

func InvalidState(message string) *DomainError {
	return &DomainError{Code: CodeInvalidState, Message: message}
}

func ValidationFailed(details []string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: "validation failed", Details: details}
}

func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
