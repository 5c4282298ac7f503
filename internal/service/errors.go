package service

import (
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/mooc-credit-api/internal/repository"
	appErrors "github.com/noah-isme/mooc-credit-api/pkg/errors"
)

// storeError maps repository sentinels onto API error kinds for entity.
// Anything it does not recognise becomes an internal error.
func storeError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	case errors.Is(err, repository.ErrStatusMismatch):
		return appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, "bundle is not in the required status")
	case errors.Is(err, repository.ErrUniqueViolation):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "resource already exists")
	case errors.Is(err, repository.ErrForeignKeyViolation):
		return appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "referenced resource does not exist")
	case errors.Is(err, repository.ErrLastDetail):
		return appErrors.Wrap(err, appErrors.ErrPolicyViolation.Code, appErrors.ErrPolicyViolation.Status, "cannot leave a bundle empty")
	case errors.Is(err, repository.ErrMissingCertificate):
		return appErrors.Wrap(err, appErrors.ErrPolicyViolation.Code, appErrors.ErrPolicyViolation.Status, "every bundle detail needs a certificate")
	case errors.Is(err, repository.ErrCoordinatorBound):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "coordinator is still bound to a department")
	}
	return appErrors.Internal(err, "failed to access "+entity)
}

func validationError(validate *validator.Validate, payload interface{}, msg string) error {
	if err := validate.Struct(payload); err != nil {
		return appErrors.Invalid(err, msg)
	}
	return nil
}
