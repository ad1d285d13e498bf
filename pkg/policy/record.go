package policy

import (
	"errors"
	"fmt"

	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/normalizers"
)

// ErrMissingIdentity is returned for documents without a usable identity key
var ErrMissingIdentity = errors.New("missing identity key")

// IdentityKey reads and normalizes the identity key of a document
func (p *Policy) IdentityKey(doc models.Document) (string, error) {
	raw, ok := ReadPath(doc.Properties, p.Identity.ReadPath)
	if !ok {
		return "", ErrMissingIdentity
	}
	scalar := coerceScalar(raw)
	if scalar == nil {
		return "", ErrMissingIdentity
	}
	value, ok := scalar.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrMissingIdentity, p.Identity.ReadPath)
	}
	key := normalizers.IdentityKey(value, p.Identity.Normalizers)
	if key == "" {
		return "", ErrMissingIdentity
	}
	return key, nil
}

// ToRecord maps a document through the policy table. Position is the document's index in the
// store iteration order and is used as the tie-breaker for ordering.
func (p *Policy) ToRecord(doc models.Document, position int) (models.Record, error) {
	key, err := p.IdentityKey(doc)
	if err != nil {
		return models.Record{}, err
	}

	record := models.Record{
		ID:          doc.ID,
		CreatedAt:   doc.CreatedAt,
		IdentityKey: key,
		Position:    position,
		Values:      make(map[string]any, len(p.Fields)),
		Current:     make(map[string]any, len(p.Fields)),
	}
	for _, f := range p.Fields {
		source, _ := ReadPath(doc.Properties, f.SourceReadPath)
		record.Values[f.Name] = Coerce(f.Kind, source)

		dest, _ := ReadPath(doc.Properties, f.DestinationPath())
		record.Current[f.Name] = Coerce(f.Kind, dest)
	}
	return record, nil
}

// Snapshot returns the denormalized image of a record used for backups
func (p *Policy) Snapshot(r models.Record) models.RecordSnapshot {
	attrs := make(map[string]any, len(p.Fields))
	for _, f := range p.Fields {
		if v := r.Values[f.Name]; !IsEmpty(v) {
			attrs[f.Name] = v
		}
	}
	return models.RecordSnapshot{
		ID:          r.ID,
		IdentityKey: r.IdentityKey,
		CreatedAt:   r.CreatedAt,
		Attributes:  attrs,
	}
}
