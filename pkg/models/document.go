package models

import (
	"encoding/json"
	"time"
)

// Document is a record as returned by a document store bulk query.
type Document struct {
	ID         string         `json:"id" db:"id"`
	Collection string         `json:"collection,omitempty" db:"collection"`
	CreatedAt  *time.Time     `json:"created_at,omitempty" db:"created_at"`
	Properties map[string]any `json:"properties"`
	Archived   bool           `json:"archived,omitempty"`

	// InvalidCreatedAt holds a creation timestamp the store sent but that could not be parsed.
	// CreatedAt is nil whenever it is set.
	InvalidCreatedAt string `json:"-" db:"-"`
}

// UnmarshalJSON tolerates a malformed created_at. The document decodes with no timestamp
// instead of failing the whole batch.
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	aux := struct {
		*alias
		CreatedAt json.RawMessage `json:"created_at,omitempty"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.CreatedAt, d.InvalidCreatedAt = ParseTimestamp(aux.CreatedAt)
	return nil
}

// ParseTimestamp decodes a raw JSON timestamp. Null or absent values give (nil, ""). Anything
// that is not an RFC 3339 string gives nil and the raw text.
func ParseTimestamp(raw json.RawMessage) (*time.Time, string) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, string(raw)
	}
	if s == "" {
		return nil, ""
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, s
	}
	return &t, ""
}

// QueryFilter narrows a bulk query. Properties is an equality match on top-level properties.
type QueryFilter struct {
	Properties map[string]any `json:"properties,omitempty"`
}
