package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNoEncontrado   = errors.New("no encontrado")
	ErrConflicto      = errors.New("conflicto")
	ErrValidacion     = errors.New("validacion")
	ErrEstadoInvalido = errors.New("estado invalido")
	ErrCredenciales   = errors.New("credenciales invalidas")
)

// Error carries a user-facing message and the kind it belongs to.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func noEncontrado(format string, args ...interface{}) error {
	return newError(ErrNoEncontrado, format, args...)
}

func conflicto(format string, args ...interface{}) error {
	return newError(ErrConflicto, format, args...)
}

func invalido(format string, args ...interface{}) error {
	return newError(ErrValidacion, format, args...)
}

func estadoInvalido(format string, args ...interface{}) error {
	return newError(ErrEstadoInvalido, format, args...)
}

// notFoundOr turns gorm.ErrRecordNotFound into a ErrNoEncontrado with msg and
// passes any other error through unchanged.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return noEncontrado("%s", msg)
	}
	return err
}

// duplicadoOr maps unique/foreign-key violations reported by the database to
// ErrConflicto. Requires gorm's TranslateError.
func duplicadoOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return conflicto("%s", msg)
	}
	return err
}
