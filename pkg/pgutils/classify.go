package pgutils

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// CodeQueryCanceled is raised when a statement exceeds statement_timeout.
const CodeQueryCanceled = "57014"

// IsStatementTimeout checks if the error is a PostgreSQL statement-timeout
// cancellation (57014), the code pgx surfaces when statement_timeout fires.
func IsStatementTimeout(err error) bool {
	return containsErrorCode(err, CodeQueryCanceled)
}

// DuplicateKind identifies which uniqueness constraint a 23505 violation tripped.
type DuplicateKind int

const (
	// DuplicateUnknown means the violated constraint could not be identified.
	DuplicateUnknown DuplicateKind = iota
	// DuplicateID means the primary key (id) collided.
	DuplicateID
	// DuplicateSlugVersion means the (slug, version) uniqueness constraint collided.
	DuplicateSlugVersion
)

// ClassifyDuplicate inspects a unique-violation error's constraint name to
// tell apart a colliding primary key from a colliding slug@version pair.
// Returns DuplicateUnknown for non-unique-violation errors.
func ClassifyDuplicate(err error) DuplicateKind {
	if !IsUniqueViolation(err) {
		return DuplicateUnknown
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.Contains(pgErr.ConstraintName, "slug"):
			return DuplicateSlugVersion
		case strings.Contains(pgErr.ConstraintName, "pkey"):
			return DuplicateID
		}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "slug"):
		return DuplicateSlugVersion
	case strings.Contains(msg, "pkey"), strings.Contains(msg, "_id_"):
		return DuplicateID
	}
	return DuplicateUnknown
}
