package models

import "github.com/Gobusters/ectolinq"

// DuplicateGroup is a set of records sharing one normalized identity key.
// Destination is the surviving record, Sources are merged into it and archived.
type DuplicateGroup struct {
	GroupID     string   `json:"group_id"`
	Destination Record   `json:"destination"`
	Sources     []Record `json:"sources"`
}

// Records returns the destination followed by the sources, in group order.
func (g DuplicateGroup) Records() []Record {
	records := make([]Record, 0, len(g.Sources)+1)
	records = append(records, g.Destination)
	records = append(records, g.Sources...)
	return records
}

// SourceIDs returns the ids of all sources in group order
func (g DuplicateGroup) SourceIDs() []string {
	return ectolinq.Map(g.Sources, func(r Record) string {
		return r.ID
	})
}
