package apperror

import "net/http"

// Domain error kinds for the contract store, schema compiler, and link
// expansion engine. Follows the same New(status, code, message) shape as
// the errors in error.go.
var (
	ErrSchemaInvalid = New(http.StatusBadRequest, "schema_invalid", "Schema is not a valid JSON Schema document")

	ErrSlugInvalid    = New(http.StatusBadRequest, "slug_invalid", "Slug does not match the required grammar")
	ErrVersionInvalid = New(http.StatusBadRequest, "version_invalid", "Version does not match the required grammar")

	ErrElementAlreadyExists = New(http.StatusConflict, "element_already_exists", "An element with this slug and version already exists")
	ErrNoElement            = New(http.StatusNotFound, "no_element", "No element matches the requested identifier")

	ErrDatabaseTimeout = New(http.StatusGatewayTimeout, "database_timeout", "Database operation exceeded its statement timeout")

	ErrInvalidLimit = New(http.StatusBadRequest, "invalid_limit", "Requested limit is negative or exceeds the configured maximum")

	ErrNoLinkTarget        = New(http.StatusUnprocessableEntity, "no_link_target", "Link target does not resolve to an existing element")
	ErrUnknownRelationship = New(http.StatusUnprocessableEntity, "unknown_relationship", "Relationship name is not declared by the schema")
)

// NewSchemaInvalid wraps a schema compilation failure with its cause.
func NewSchemaInvalid(err error) *Error {
	return ErrSchemaInvalid.WithInternal(err)
}

// NewSlugInvalid reports a malformed slug.
func NewSlugInvalid(slug string) *Error {
	return ErrSlugInvalid.WithField("slug", slug)
}

// NewVersionInvalid reports a malformed version string.
func NewVersionInvalid(version string) *Error {
	return ErrVersionInvalid.WithField("version", version)
}

// NewElementAlreadyExists reports a slug@version collision on create.
func NewElementAlreadyExists(slug, version string) *Error {
	return ErrElementAlreadyExists.WithField("slug", slug).WithField("version", version)
}

// NewNoElement reports that no contract matched the given identifier.
func NewNoElement(id string) *Error {
	return ErrNoElement.WithField("id", id)
}

// NewDatabaseTimeout wraps a statement-timeout failure with its cause.
func NewDatabaseTimeout(err error) *Error {
	return ErrDatabaseTimeout.WithInternal(err)
}

// NewInvalidLimit reports a requested page size that is negative or above
// the configured cap.
func NewInvalidLimit(requested, max int) *Error {
	return ErrInvalidLimit.WithField("requested", requested).WithField("max", max)
}

// NewNoLinkTarget reports a $links traversal whose target id does not exist.
func NewNoLinkTarget(targetID string) *Error {
	return ErrNoLinkTarget.WithField("target_id", targetID)
}

// NewUnknownRelationship reports a relationship name absent from the schema's $links map.
func NewUnknownRelationship(name string) *Error {
	return ErrUnknownRelationship.WithField("relationship", name)
}
