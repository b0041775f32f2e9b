package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Error categories. Handlers map them to status codes with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream service failed")
)

// Error is a categorised error whose message is safe to return to clients.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

func notFound(msg string) error     { return newError(ErrNotFound, msg) }
func forbidden(msg string) error    { return newError(ErrForbidden, msg) }
func conflict(msg string) error     { return newError(ErrConflict, msg) }
func invalid(msg string) error      { return newError(ErrInvalidInput, msg) }
func unauthorized(msg string) error { return newError(ErrUnauthorized, msg) }

// orNotFound turns a missing row into a not-found error and passes other errors through.
func orNotFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}

// PublicMessage returns the client-facing message of err, or "" when err
// carries none.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return ""
}

// isDuplicate reports a unique constraint violation. The sqlite driver does
// not translate its errors, so the message is checked as well.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
