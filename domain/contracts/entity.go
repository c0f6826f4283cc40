package contracts

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Contract is the wide table spec.md §3/§6 describes: a uniform document
// with a slug, semantic version, type, tags, markers, and an opaque data
// payload. "links" is never a column — it is materialized at query time
// by the link expansion engine (pkg/schema/linkexpand) and is therefore
// deliberately absent from this struct.
type Contract struct {
	bun.BaseModel `bun:"table:contracts,alias:c"`

	ID     uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Slug   string    `bun:"slug,notnull" json:"slug"`
	Type   string    `bun:"type,notnull" json:"type"`
	Active bool      `bun:"active,notnull,default:true" json:"active"`

	VersionMajor      int    `bun:"version_major,notnull,default:0" json:"-"`
	VersionMinor      int    `bun:"version_minor,notnull,default:0" json:"-"`
	VersionPatch      int    `bun:"version_patch,notnull,default:0" json:"-"`
	VersionPrerelease string `bun:"version_prerelease,notnull,default:''" json:"-"`
	VersionBuild      string `bun:"version_build,notnull,default:''" json:"-"`

	Name string `bun:"name" json:"name,omitempty"`

	Tags    []string `bun:"tags,array,notnull,default:'{}'" json:"tags"`
	Markers []string `bun:"markers,array,notnull,default:'{}'" json:"markers"`

	Requires     []json.RawMessage `bun:"requires,array,type:jsonb[],notnull,default:'{}'" json:"requires"`
	Capabilities []json.RawMessage `bun:"capabilities,array,type:jsonb[],notnull,default:'{}'" json:"capabilities"`

	Data     json.RawMessage `bun:"data,type:jsonb,notnull,default:'{}'" json:"data"`
	LinkedAt json.RawMessage `bun:"linked_at,type:jsonb,notnull,default:'{}'" json:"linkedAt,omitempty"`

	VersionedSlug string `bun:"versioned_slug,scanonly" json:"versionedSlug,omitempty"`

	CreatedAt time.Time  `bun:"created_at,notnull,default:now()" json:"createdAt"`
	UpdatedAt *time.Time `bun:"updated_at" json:"updatedAt,omitempty"`
}

// Version returns the parsed five-component version.
func (c *Contract) Version() Version {
	return Version{
		Major:      c.VersionMajor,
		Minor:      c.VersionMinor,
		Patch:      c.VersionPatch,
		Prerelease: c.VersionPrerelease,
		Build:      c.VersionBuild,
	}
}
