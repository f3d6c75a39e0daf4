package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/modgraph/internal/engine"
	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/record"
)

const (
	entryURL = "https://a.test/main.js"
	depURL   = "https://a.test/dep.js"
)

// ---------------------------------------------------------------------------
// Test helper
// ---------------------------------------------------------------------------

func startTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *engine.Engine, *Server) {
	t.Helper()

	e := engine.New(engine.WithDebounce(10 * time.Millisecond))
	c := ingest.NewCollector(e, ingest.WithParser(ingest.NewTreeSitterParser()))
	srv := NewServer(e, c, opts...)
	ts := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
		ts.Close()
		_ = e.Close()
	})
	return ts, e, srv
}

// postJSONRPC sends a JSON-RPC request and decodes the response.
func postJSONRPC(t *testing.T, baseURL string, method string, id any, params any) JSONRPCResponse {
	t.Helper()

	var rawParams json.RawMessage
	if params != nil {
		b, err := json.Marshal(params)
		require.NoError(t, err)
		rawParams = b
	}

	body, err := json.Marshal(JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  rawParams,
	})
	require.NoError(t, err)

	resp, err := http.Post(baseURL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	return rpcResp
}

func mergeEntry(t *testing.T, baseURL string) {
	t.Helper()
	resp := postJSONRPC(t, baseURL, MethodMergeRecord, 1, MergeParams{
		URL: entryURL,
		Fields: record.PartialRecord{
			Entrypoint: record.Ptr(true),
			Initiator:  &record.Initiator{Kind: record.InitiatorScriptTag},
			Imports:    []record.Import{{Specifier: "./dep.js", Style: record.StyleStatic}},
		},
	})
	require.Nil(t, resp.Error)
	resp = postJSONRPC(t, baseURL, MethodMergeRecord, 2, MergeParams{
		URL:    depURL,
		Fields: record.PartialRecord{Content: record.Ptr("export const x = 1")},
	})
	require.Nil(t, resp.Error)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestServerMergeAndList(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp := postJSONRPC(t, ts.URL, MethodMergeRecord, 1, MergeParams{
		URL:    entryURL,
		Fields: record.PartialRecord{Entrypoint: record.Ptr(true), Status: record.Ptr(200)},
	})
	require.Nil(t, resp.Error)
	assert.Equal(t, JSONRPCVersion, resp.JSONRPC)

	var rec record.FileRecord
	require.NoError(t, json.Unmarshal(resp.Result, &rec))
	assert.Equal(t, entryURL, rec.URL)
	assert.True(t, rec.Entrypoint)
	assert.Equal(t, 200, rec.Status)

	resp = postJSONRPC(t, ts.URL, MethodListRecords, 2, nil)
	require.Nil(t, resp.Error)
	var snap record.Snapshot
	require.NoError(t, json.Unmarshal(resp.Result, &snap))
	require.Contains(t, snap.Records, entryURL)
	assert.Equal(t, uint64(1), snap.Version)
}

func TestServerGraphsPathsAndTree(t *testing.T) {
	ts, _, _ := startTestServer(t)
	mergeEntry(t, ts.URL)

	resp := postJSONRPC(t, ts.URL, MethodGetGraphs, 3, GraphsParams{Flush: true})
	require.Nil(t, resp.Error)
	var graphs GraphsResult
	require.NoError(t, json.Unmarshal(resp.Result, &graphs))
	require.Contains(t, graphs.Graphs, entryURL)
	assert.Contains(t, graphs.Graphs[entryURL], depURL)
	assert.Equal(t, uint64(2), graphs.Version)

	resp = postJSONRPC(t, ts.URL, MethodFindPaths, 4, PathsParams{URL: depURL})
	require.Nil(t, resp.Error)
	var paths PathsResult
	require.NoError(t, json.Unmarshal(resp.Result, &paths))
	require.Len(t, paths.Paths, 1)
	assert.Equal(t, []string{entryURL, depURL}, paths.Paths[0].URLs())

	resp = postJSONRPC(t, ts.URL, MethodGetTree, 5, TreeParams{Entrypoint: entryURL})
	require.Nil(t, resp.Error)
	var tree TreeResult
	require.NoError(t, json.Unmarshal(resp.Result, &tree))
	require.Len(t, tree.Rows, 2)
	assert.Equal(t, "└── ", tree.Rows[1].Indent)
	assert.Equal(t, "dep.js", tree.Rows[1].FileName)
}

func TestServerPageFlow(t *testing.T) {
	ts, e, _ := startTestServer(t)

	resp := postJSONRPC(t, ts.URL, MethodPageScripts, 1, ScriptsParams{Scripts: []ingest.ScriptTag{{
		Index:           0,
		Src:             entryURL,
		IsModule:        true,
		DocumentBaseURI: "https://a.test/",
	}}})
	require.Nil(t, resp.Error)
	var scripts ScriptsResult
	require.NoError(t, json.Unmarshal(resp.Result, &scripts))
	assert.Equal(t, 1, scripts.Written)

	resp = postJSONRPC(t, ts.URL, MethodNetworkFinished, 2, ingest.NetworkEvent{
		URL:          entryURL,
		Status:       200,
		ResourceType: "Script",
		Headers:      []ingest.Header{{Name: "Content-Type", Value: "text/javascript"}},
		Content:      `import "./dep.js";`,
	})
	require.Nil(t, resp.Error)
	var finished NetworkResult
	require.NoError(t, json.Unmarshal(resp.Result, &finished))
	assert.True(t, finished.Recorded)

	rec, ok := e.Store().Get(entryURL)
	require.True(t, ok)
	assert.True(t, rec.Entrypoint)
	assert.False(t, rec.IsPending)
	require.Len(t, rec.Imports, 1)
	assert.Equal(t, "./dep.js", rec.Imports[0].Specifier)

	resp = postJSONRPC(t, ts.URL, MethodPageNavigated, 3, nil)
	require.Nil(t, resp.Error)
	assert.Equal(t, 0, e.Store().Len())
}

func TestServerClear(t *testing.T) {
	ts, e, _ := startTestServer(t)
	mergeEntry(t, ts.URL)

	resp := postJSONRPC(t, ts.URL, MethodClearRecords, 1, struct{}{})
	require.Nil(t, resp.Error)
	var res ClearResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	assert.Equal(t, uint64(1), res.Epoch)
	assert.Empty(t, e.GetGraphs())
}

func TestServerErrors(t *testing.T) {
	ts, _, _ := startTestServer(t)

	tests := []struct {
		name     string
		method   string
		params   any
		wantCode int
	}{
		{"unknown method", "records/nope", nil, ErrCodeMethodNotFound},
		{"merge without url", MethodMergeRecord, MergeParams{}, ErrCodeInvalidParams},
		{"merge with wrong shape", MethodMergeRecord, []int{1}, ErrCodeInvalidParams},
		{"paths without url", MethodFindPaths, PathsParams{}, ErrCodeInvalidParams},
		{"tree without entrypoint", MethodGetTree, TreeParams{}, ErrCodeInvalidParams},
		{"network without url", MethodNetworkFinished, ingest.NetworkEvent{}, ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSONRPC(t, ts.URL, tt.method, 7, tt.params)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.EqualValues(t, 7, resp.ID)
		})
	}
}

func TestServerParseError(t *testing.T) {
	ts, _, _ := startTestServer(t)

	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader([]byte("{invalid json")))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
	assert.Equal(t, ErrCodeParse, rpcResp.Error.Code)
}

func TestServerRejectsWrongVersion(t *testing.T) {
	ts, _, _ := startTestServer(t)

	body := []byte(`{"jsonrpc":"1.0","id":1,"method":"records/list"}`)
	resp, err := http.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var rpcResp JSONRPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rpcResp))
	require.NotNil(t, rpcResp.Error)
	assert.Equal(t, ErrCodeInvalidRequest, rpcResp.Error.Code)
}

func TestServerOrigins(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    int
	}{
		{"no origin header", nil, "", http.StatusOK},
		{"foreign origin without allow list", nil, "https://evil.test", http.StatusForbidden},
		{"listed origin", []string{"chrome-extension://abc"}, "chrome-extension://abc", http.StatusOK},
		{"unlisted origin", []string{"chrome-extension://abc"}, "https://evil.test", http.StatusForbidden},
		{"wildcard", []string{"*"}, "https://any.test", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _, _ := startTestServer(t, WithAllowedOrigins(tt.allowed))

			req, err := http.NewRequest(http.MethodPost, ts.URL+"/rpc",
				bytes.NewReader([]byte(`{"jsonrpc":"2.0","id":1,"method":"records/list"}`)))
			require.NoError(t, err)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want == http.StatusOK && tt.origin != "" {
				assert.Equal(t, tt.origin, resp.Header.Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestServerPreflight(t *testing.T) {
	ts, _, _ := startTestServer(t, WithAllowedOrigins([]string{"*"}))

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/rpc", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "chrome-extension://abc")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}
