package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrStatusMismatch reports that a conditional update found the row in another state.
	ErrStatusMismatch = errors.New("status mismatch")
	// ErrUniqueViolation reports a unique constraint or index conflict.
	ErrUniqueViolation = errors.New("unique violation")
	// ErrForeignKeyViolation reports a dangling reference.
	ErrForeignKeyViolation = errors.New("foreign key violation")
	// ErrLastDetail reports an attempt to remove the only detail of a bundle.
	ErrLastDetail = errors.New("bundle must keep at least one detail")
	// ErrMissingCertificate reports a detail without a certificate URL.
	ErrMissingCertificate = errors.New("bundle detail missing certificate")
	// ErrCoordinatorBound reports a coordinator still bound to a department.
	ErrCoordinatorBound = errors.New("coordinator bound to a department")
	// ErrCacheMiss reports an absent cache entry.
	ErrCacheMiss = errors.New("cache miss")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto repository sentinels, keeping the cause.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return errors.Join(ErrUniqueViolation, err)
	case pqForeignKeyViolation:
		return errors.Join(ErrForeignKeyViolation, err)
	}
	return err
}
