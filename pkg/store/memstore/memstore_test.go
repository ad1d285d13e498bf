package memstore

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/pkg/models"
)

func TestStore_QueryAll(t *testing.T) {
	s := New(
		models.Document{ID: "A", Collection: "contacts", Properties: map[string]any{"status": "lead"}},
		models.Document{ID: "B", Collection: "deals", Properties: map[string]any{"status": "lead"}},
		models.Document{ID: "C", Properties: map[string]any{"status": "customer"}},
		models.Document{ID: "D", Collection: "contacts", Archived: true},
	)
	ctx := context.Background()

	docs, err := s.QueryAll(ctx, "contacts", nil)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A", docs[0].ID)
	assert.Equal(t, "C", docs[1].ID)

	docs, err = s.QueryAll(ctx, "contacts", &models.QueryFilter{Properties: map[string]any{"status": "lead"}})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "A", docs[0].ID)

	docs[0].Properties["status"] = "mutated"
	stored, _ := s.Get("A")
	assert.Equal(t, "lead", stored.Properties["status"])
}

func TestStore_QueryAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().QueryAll(ctx, "contacts", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_Writes(t *testing.T) {
	s := New(models.Document{ID: "A", Properties: map[string]any{"phone": ""}})
	ctx := context.Background()

	require.NoError(t, s.UpdatePartial(ctx, "A", map[string]any{"phone": "555"}))
	require.NoError(t, s.Archive(ctx, "A"))

	doc, ok := s.Get("A")
	require.True(t, ok)
	assert.Equal(t, "555", doc.Properties["phone"])
	assert.True(t, doc.Archived)

	err := s.Archive(ctx, "A")
	assert.Equal(t, http.StatusConflict, httperror.GetStatusCode(err))

	err = s.UpdatePartial(ctx, "missing", map[string]any{})
	assert.Equal(t, http.StatusNotFound, httperror.GetStatusCode(err))

	assert.Equal(t, []Call{
		{Op: "update", ID: "A", Properties: map[string]any{"phone": "555"}},
		{Op: "archive", ID: "A"},
		{Op: "archive", ID: "A"},
		{Op: "update", ID: "missing", Properties: map[string]any{}},
	}, s.Calls())
}

func TestStore_FailOn(t *testing.T) {
	boom := errors.New("boom")
	s := New(models.Document{ID: "A"})
	s.FailOn("A", boom)

	assert.ErrorIs(t, s.Archive(context.Background(), "A"), boom)
	doc, _ := s.Get("A")
	assert.False(t, doc.Archived)
}
