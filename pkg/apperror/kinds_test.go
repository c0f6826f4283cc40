package apperror

import (
	"net/http"
	"testing"
)

func TestNewSlugInvalid(t *testing.T) {
	err := NewSlugInvalid("Bad Slug!")
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusBadRequest)
	}
	if err.Code != "slug_invalid" {
		t.Errorf("Code = %q, want slug_invalid", err.Code)
	}
	if err.Details["slug"] != "Bad Slug!" {
		t.Errorf("Details[slug] = %v, want %q", err.Details["slug"], "Bad Slug!")
	}
}

func TestNewVersionInvalid(t *testing.T) {
	err := NewVersionInvalid("1.0")
	if err.Code != "version_invalid" {
		t.Errorf("Code = %q, want version_invalid", err.Code)
	}
	if err.Details["version"] != "1.0" {
		t.Errorf("Details[version] = %v, want %q", err.Details["version"], "1.0")
	}
}

func TestNewElementAlreadyExists(t *testing.T) {
	err := NewElementAlreadyExists("widget", "1.0.0")
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusConflict)
	}
	if err.Details["slug"] != "widget" || err.Details["version"] != "1.0.0" {
		t.Errorf("Details = %v, want slug=widget version=1.0.0", err.Details)
	}
}

func TestNewNoElement(t *testing.T) {
	err := NewNoElement("abc-123")
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusNotFound)
	}
	if err.Details["id"] != "abc-123" {
		t.Errorf("Details[id] = %v, want abc-123", err.Details["id"])
	}
}

func TestNewDatabaseTimeout(t *testing.T) {
	cause := New(http.StatusInternalServerError, "pg", "statement timeout")
	err := NewDatabaseTimeout(cause)
	if err.HTTPStatus != http.StatusGatewayTimeout {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusGatewayTimeout)
	}
	if err.Internal != cause {
		t.Errorf("Internal = %v, want %v", err.Internal, cause)
	}
}

func TestNewInvalidLimit(t *testing.T) {
	err := NewInvalidLimit(5000, 1000)
	if err.Details["requested"] != 5000 || err.Details["max"] != 1000 {
		t.Errorf("Details = %v, want requested=5000 max=1000", err.Details)
	}
}

func TestNewNoLinkTarget(t *testing.T) {
	err := NewNoLinkTarget("missing-id")
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("HTTPStatus = %d, want %d", err.HTTPStatus, http.StatusUnprocessableEntity)
	}
	if err.Details["target_id"] != "missing-id" {
		t.Errorf("Details[target_id] = %v, want missing-id", err.Details["target_id"])
	}
}

func TestNewUnknownRelationship(t *testing.T) {
	err := NewUnknownRelationship("author")
	if err.Details["relationship"] != "author" {
		t.Errorf("Details[relationship] = %v, want author", err.Details["relationship"])
	}
}

func TestWithFieldMergesExistingDetails(t *testing.T) {
	base := New(http.StatusBadRequest, "x", "y").WithField("a", 1)
	merged := base.WithField("b", 2)
	if merged.Details["a"] != 1 || merged.Details["b"] != 2 {
		t.Errorf("Details = %v, want a=1 b=2", merged.Details)
	}
	if len(base.Details) != 1 {
		t.Errorf("original Details mutated: %v", base.Details)
	}
}
