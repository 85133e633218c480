package dberrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDuplicateConstraintError(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "discipline_status_audit_pkey"}

	assert.True(t, IsDuplicateConstraintError(dup, "discipline_status_audit_pkey"))
	assert.True(t, IsDuplicateConstraintError(fmt.Errorf("insert: %w", dup), "discipline_status_audit_pkey"))
	assert.False(t, IsDuplicateConstraintError(dup, "other_key"))
	assert.False(t, IsDuplicateConstraintError(errors.New("23505"), "discipline_status_audit_pkey"))
}

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, IsUndefinedTable(fmt.Errorf("query: %w", &pgconn.PgError{Code: "42P01"})))
	assert.False(t, IsUndefinedTable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUndefinedTable(nil))
}
