package apperrors

import (
	"context"

	"github.com/pkg/errors"
)

// Базовые виды ошибок. Слои выше различают их через errors.Is,
// HTTP-коды назначаются в одном месте (httpapi).
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrAuth              = errors.New("unauthorized")
	ErrNotLinked         = errors.New("chat not linked")
	ErrDependency        = errors.New("dependency failed")
	ErrDependencyTimeout = errors.New("dependency timeout")
)

func Validation(msg string) error {
	return errors.Wrap(ErrValidation, msg)
}

func Validationf(format string, args ...any) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

func NotFound(what string) error {
	return errors.Wrap(ErrNotFound, what)
}

func Duplicate(what string) error {
	return errors.Wrap(ErrDuplicateKey, what)
}

func NotLinked(tempID string) error {
	return errors.Wrap(ErrNotLinked, tempID)
}

// Dependency оборачивает ошибку внешней системы, превращая
// истёкший контекст в таймаут зависимости.
func Dependency(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(ErrDependencyTimeout, "%s: %v", what, err)
	}
	return errors.Wrapf(ErrDependency, "%s: %v", what, err)
}

func IsValidation(err error) bool  { return errors.Is(err, ErrValidation) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
func IsDuplicate(err error) bool   { return errors.Is(err, ErrDuplicateKey) }
func IsAuth(err error) bool        { return errors.Is(err, ErrAuth) }
func IsNotLinked(err error) bool   { return errors.Is(err, ErrNotLinked) }
func IsDependency(err error) bool {
	return errors.Is(err, ErrDependency) || errors.Is(err, ErrDependencyTimeout)
}
