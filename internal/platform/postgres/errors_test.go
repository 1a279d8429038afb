package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/docgen-api/internal/store"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"check violation", &pgconn.PgError{Code: checkViolationCode, ConstraintName: "generation_jobs_status_check"}, store.ErrInvalidEntity},
		{"not null violation", &pgconn.PgError{Code: notNullViolationCode, ColumnName: "record"}, store.ErrInvalidEntity},
		{"connection failure", &pgconn.PgError{Code: "08006"}, store.ErrUnavailable},
		{"wrapped check violation", fmt.Errorf("exec: %w", &pgconn.PgError{Code: checkViolationCode}), store.ErrInvalidEntity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, MapError(tc.err), tc.want)
		})
	}

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, MapError(nil))
	})

	t.Run("unrecognized error passes through", func(t *testing.T) {
		orig := errors.New("boom")
		assert.Same(t, orig, MapError(orig))
	})
}

func TestIsNotFoundError(t *testing.T) {
	assert.True(t, IsNotFoundError(sql.ErrNoRows))
	assert.True(t, IsNotFoundError(store.ErrJobNotFound))
	assert.False(t, IsNotFoundError(errors.New("other")))
}
