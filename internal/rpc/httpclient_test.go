package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/record"
)

func TestHTTPClientRoundTrip(t *testing.T) {
	ts, _, _ := startTestServer(t)
	client := NewHTTPClient(ts.URL+"/", WithTimeout(5*time.Second))
	ctx := context.Background()

	n, err := client.DiscoverScripts(ctx, []ingest.ScriptTag{{
		Index:           0,
		InlineContent:   `import "./main.js";`,
		IsModule:        true,
		DocumentBaseURI: "https://a.test/",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recorded, err := client.RequestFinished(ctx, ingest.NetworkEvent{
		URL:          entryURL,
		Status:       200,
		ResourceType: "Script",
		Headers:      []ingest.Header{{Name: "content-type", Value: "application/javascript"}},
		Initiator:    &ingest.RequestInitiator{URL: "https://a.test/inline-script-0.js"},
		Content:      "export default 1;",
	})
	require.NoError(t, err)
	assert.True(t, recorded)

	snap, err := client.ListRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 2)

	graphs, err := client.GetGraphs(ctx, GraphsParams{Flush: true})
	require.NoError(t, err)
	inline := "https://a.test/inline-script-0.js"
	require.Contains(t, graphs.Graphs, inline)
	var deps []string
	for _, d := range graphs.Graphs[inline][inline].Dependencies {
		deps = append(deps, d.URL)
	}
	assert.Contains(t, deps, entryURL)

	paths, err := client.FindPaths(ctx, PathsParams{URL: entryURL})
	require.NoError(t, err)
	require.Len(t, paths.Paths, 1)
	assert.Equal(t, []string{inline, entryURL}, paths.Paths[0].URLs())

	tree, err := client.GetTree(ctx, TreeParams{Entrypoint: inline})
	require.NoError(t, err)
	require.Len(t, tree.Rows, 2)
	assert.Equal(t, "main.js", tree.Rows[1].FileName)

	require.NoError(t, client.Navigated(ctx))
	snap, err = client.ListRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Records)
	assert.Equal(t, uint64(1), snap.Epoch)
}

func TestHTTPClientMergeReturnsRecord(t *testing.T) {
	ts, _, _ := startTestServer(t)
	client := NewHTTPClient(ts.URL)

	rec, err := client.MergeRecord(context.Background(), depURL, record.PartialRecord{
		Content: record.Ptr("export const a = 1;"),
		Exports: []string{"a"},
	})
	require.NoError(t, err)
	assert.Equal(t, depURL, rec.URL)
	assert.Equal(t, []string{"a"}, rec.Exports)
}

func TestHTTPClientRPCError(t *testing.T) {
	ts, _, _ := startTestServer(t)
	client := NewHTTPClient(ts.URL)

	_, err := client.GetTree(context.Background(), TreeParams{})
	require.Error(t, err)

	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, MethodGetTree, rpcErr.Method)
	assert.Equal(t, ErrCodeInvalidParams, rpcErr.Code)
	assert.Contains(t, err.Error(), "entrypoint is required")
}

func TestHTTPClientHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()
	client := NewHTTPClient(ts.URL)

	_, err := client.ListRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")

	_, err = client.Subscribe(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 502")
}
