package pgutils

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsStatementTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"query canceled", errors.New("ERROR: canceling statement due to statement timeout (SQLSTATE 57014)"), true},
		{"unrelated", errors.New("SQLSTATE 23505"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStatementTimeout(tt.err); got != tt.want {
				t.Errorf("IsStatementTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyDuplicate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want DuplicateKind
	}{
		{"not a unique violation", errors.New("SQLSTATE 23503"), DuplicateUnknown},
		{
			"pgconn error with slug constraint",
			&pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "contracts_slug_version_key"},
			DuplicateSlugVersion,
		},
		{
			"pgconn error with pkey constraint",
			&pgconn.PgError{Code: CodeUniqueViolation, ConstraintName: "contracts_pkey"},
			DuplicateID,
		},
		{
			"string fallback slug",
			errors.New("duplicate key value violates unique constraint \"contracts_slug_version_key\" (SQLSTATE 23505)"),
			DuplicateSlugVersion,
		},
		{
			"string fallback pkey",
			errors.New("duplicate key value violates unique constraint \"contracts_pkey\" (SQLSTATE 23505)"),
			DuplicateID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDuplicate(tt.err); got != tt.want {
				t.Errorf("ClassifyDuplicate() = %v, want %v", got, tt.want)
			}
		})
	}
}
