package graph

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/internal/testenv"
)

func getTestClient(t *testing.T) *Client {
	endpoint := testenv.Graph(t)
	client, err := NewClient(Config{
		Host:     endpoint.Host,
		Port:     endpoint.Port,
		Username: endpoint.User,
		Password: endpoint.Password,
	}, testLogger())
	require.NoError(t, err)
	require.NoError(t, client.VerifyConnectivity(context.Background()))
	t.Cleanup(func() { _ = client.Close(context.Background()) })
	return client
}

func TestEdgeService_MergeAndArchive(t *testing.T) {
	client := getTestClient(t)
	svc := NewEdgeService(client, testLogger())
	ctx := context.Background()

	from := uuid.NewString()
	to := []string{uuid.NewString(), uuid.NewString()}

	require.NoError(t, svc.MergeEdges(ctx, "contacts", from, "deals", to))
	require.NoError(t, svc.MergeEdges(ctx, "contacts", from, "deals", to), "merging twice is idempotent")
	require.NoError(t, svc.MarkArchived(ctx, "contacts", to[0]))

	archived, err := svc.ArchivedIDs(ctx, append([]string{from}, to...))
	require.NoError(t, err)
	assert.Equal(t, []string{to[0]}, archived)
}
