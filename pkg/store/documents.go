package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

// ReadDocuments decodes a JSON array of documents
func ReadDocuments(r io.Reader) ([]models.Document, error) {
	var docs []models.Document
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	for i, d := range docs {
		if d.ID == "" {
			return nil, fmt.Errorf("document %d has no id", i)
		}
		if d.Properties == nil {
			docs[i].Properties = map[string]any{}
		}
	}
	return docs, nil
}

// ReadDocumentsFile decodes a JSON array of documents from a file
func ReadDocumentsFile(path string) ([]models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDocuments(f)
}
