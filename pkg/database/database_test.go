package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLatestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1_documents.up.sql", "1_documents.down.sql", "3_merge_runs.up.sql", "2_index.up.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}

	version, err := getLatestVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, version)

	_, err = getLatestVersion(t.TempDir())
	assert.Error(t, err)
}

func TestJSONB_Scan(t *testing.T) {
	var props JSONB[map[string]any]
	require.NoError(t, props.Scan([]byte(`{"email":"x@y.com","tags":["a"]}`)))
	assert.Equal(t, "x@y.com", props.GetValue()["email"])

	require.NoError(t, props.Scan(nil))
	assert.Nil(t, props.GetValue())

	assert.Error(t, props.Scan(42))
}

func TestJSONB_Value(t *testing.T) {
	v, err := JSONB[[]string]{Data: []string{"a", "b"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, v)
}
