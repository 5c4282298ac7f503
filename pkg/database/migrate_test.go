package database

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVersioner struct {
	version uint
	dirty   bool
	err     error
}

func (s stubVersioner) Version() (uint, bool, error) {
	return s.version, s.dirty, s.err
}

func TestAppliedVersion(t *testing.T) {
	version, err := appliedVersion(stubVersioner{version: 1})
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	version, err = appliedVersion(stubVersioner{err: migrate.ErrNilVersion})
	require.NoError(t, err)
	assert.Zero(t, version)

	_, err = appliedVersion(stubVersioner{version: 1, dirty: true})
	assert.ErrorContains(t, err, "dirty at version 1")

	_, err = appliedVersion(stubVersioner{err: errors.New("connection reset")})
	assert.ErrorContains(t, err, "connection reset")
}
