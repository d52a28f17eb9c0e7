package usecase

import "errors"

// ErrSweepInProgress is returned when another automation pass holds the guard.
var ErrSweepInProgress = errors.New("automation pass already in progress")

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeEmailExists      = "EMAIL_ALREADY_EXISTS"
	CodeLeadNotFound     = "LEAD_NOT_FOUND"
	CodeLeadTerminal     = "LEAD_TERMINAL"
	CodeInvalidEmailKind = "INVALID_EMAIL_KIND"
	CodeSendFailed       = "EMAIL_SEND_FAILED"
	CodeDatabase         = "DATABASE_ERROR"
)

type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

type TechnicalError struct {
	Code    string
	Message string
	Err     error
}

func (e *TechnicalError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *TechnicalError) Unwrap() error {
	return e.Err
}

func IsTechnicalError(err error) bool {
	var te *TechnicalError
	return errors.As(err, &te)
}

// ErrorCode returns the code carried by a DomainError or TechnicalError, or "".
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	var te *TechnicalError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

func databaseError(msg string, err error) error {
	return &TechnicalError{Code: CodeDatabase, Message: msg, Err: err}
}
