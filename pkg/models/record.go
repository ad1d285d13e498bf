package models

import "time"

// AttributeKind determines how an attribute is merged across duplicates
type AttributeKind string

const (
	// AttributeKindScalar is a single value (string, date, enum). Newest non-empty value wins.
	AttributeKindScalar AttributeKind = "scalar"
	// AttributeKindSet is an unordered collection of primitives. Values are unioned.
	AttributeKindSet AttributeKind = "set"
	// AttributeKindRelation is an unordered collection of foreign record ids. Ids are unioned.
	AttributeKindRelation AttributeKind = "relation"
)

// IsCollection reports whether values of this kind are collections.
func (k AttributeKind) IsCollection() bool {
	return k == AttributeKindSet || k == AttributeKindRelation
}

// Record is a document mapped through a field policy.
//
// Values holds every policy attribute read through its source read path, Current holds the same
// attributes read through the destination read path. Scalars are primitives or nil, sets are
// []any and relations are []string.
type Record struct {
	ID          string         `json:"id"`
	CreatedAt   *time.Time     `json:"created_at,omitempty"`
	IdentityKey string         `json:"identity_key"`
	Position    int            `json:"position"`
	Values      map[string]any `json:"values"`
	Current     map[string]any `json:"current"`
}

// HasCreatedAt reports whether the record carries a usable creation timestamp
func (r Record) HasCreatedAt() bool {
	return r.CreatedAt != nil && !r.CreatedAt.IsZero()
}

// SkippedRecord is an input record dropped before grouping
type SkippedRecord struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}
