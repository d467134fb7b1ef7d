// Package service holds helpers shared by the domain services.
package service

import (
	"errors"

	"github.com/jwalitptl/care-booking/internal/repository"
	apperrors "github.com/jwalitptl/care-booking/pkg/errors"
)

// ReadError maps a repository read failure onto the error taxonomy.
// ErrNotFound becomes NotFound(resource); anything else unreachable-looking
// becomes Unavailable and the rest Internal(message).
func ReadError(resource, message string, err error) error {
	switch {
	case err == nil:
		return nil
	case isAppError(err):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(resource, err)
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.Unavailable(err)
	}
	return apperrors.Internal(message, err)
}

// WriteError maps a repository write failure onto the error taxonomy.
func WriteError(message string, err error) error {
	switch {
	case err == nil:
		return nil
	case isAppError(err):
		return err
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.Unavailable(err)
	}
	return apperrors.WriteFailed(message, err)
}

func isAppError(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr)
}
