package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/record"
)

// HTTPClient calls a modgraph server over HTTP/JSON-RPC.
type HTTPClient struct {
	baseURL   string
	http      *http.Client
	stream    *http.Client
	requestID atomic.Int64
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets the timeout of unary calls. Event streams are not
// subject to it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client used for unary calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// NewHTTPClient creates a client for the server at baseURL, e.g.
// "http://127.0.0.1:7070".
func NewHTTPClient(baseURL string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		stream: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MergeRecord merges fields into the record at url and returns the result.
func (c *HTTPClient) MergeRecord(ctx context.Context, url string, fields record.PartialRecord) (*record.FileRecord, error) {
	var rec record.FileRecord
	if err := c.call(ctx, MethodMergeRecord, MergeParams{URL: url, Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClearRecords drops everything on the server and returns the new epoch.
func (c *HTTPClient) ClearRecords(ctx context.Context) (uint64, error) {
	var res ClearResult
	if err := c.call(ctx, MethodClearRecords, struct{}{}, &res); err != nil {
		return 0, err
	}
	return res.Epoch, nil
}

// ListRecords returns a snapshot of every record.
func (c *HTTPClient) ListRecords(ctx context.Context) (*record.Snapshot, error) {
	var snap record.Snapshot
	if err := c.call(ctx, MethodListRecords, struct{}{}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DiscoverScripts reports the script tags of the current page.
func (c *HTTPClient) DiscoverScripts(ctx context.Context, tags []ingest.ScriptTag) (int, error) {
	var res ScriptsResult
	if err := c.call(ctx, MethodPageScripts, ScriptsParams{Scripts: tags}, &res); err != nil {
		return 0, err
	}
	return res.Written, nil
}

// Navigated tells the server the page navigated away.
func (c *HTTPClient) Navigated(ctx context.Context) error {
	return c.call(ctx, MethodPageNavigated, struct{}{}, nil)
}

// RequestFinished reports a finished network request.
func (c *HTTPClient) RequestFinished(ctx context.Context, ev ingest.NetworkEvent) (bool, error) {
	var res NetworkResult
	if err := c.call(ctx, MethodNetworkFinished, ev, &res); err != nil {
		return false, err
	}
	return res.Recorded, nil
}

// GetGraphs returns the server's graphs.
func (c *HTTPClient) GetGraphs(ctx context.Context, p GraphsParams) (*GraphsResult, error) {
	var res GraphsResult
	if err := c.call(ctx, MethodGetGraphs, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// FindPaths returns every initiator path to p.URL.
func (c *HTTPClient) FindPaths(ctx context.Context, p PathsParams) (*PathsResult, error) {
	var res PathsResult
	if err := c.call(ctx, MethodFindPaths, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetTree returns the rendered tree of p.Entrypoint.
func (c *HTTPClient) GetTree(ctx context.Context, p TreeParams) (*TreeResult, error) {
	var res TreeResult
	if err := c.call(ctx, MethodGetTree, p, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Subscribe opens the /events stream. The channel is closed when ctx is
// cancelled or the server ends the stream.
func (c *HTTPClient) Subscribe(ctx context.Context) (<-chan Event, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: create request: %w", err)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rpc: subscribe: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("rpc: subscribe: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return ReadEvents(ctx, resp.Body), nil
}

func (c *HTTPClient) nextID() int64 {
	return c.requestID.Add(1)
}

// call performs a JSON-RPC 2.0 call over HTTP POST.
func (c *HTTPClient) call(ctx context.Context, method string, params any, result any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("rpc: marshal params: %w", err)
	}

	rpcReq := JSONRPCRequest{
		JSONRPC: JSONRPCVersion,
		ID:      c.nextID(),
		Method:  method,
		Params:  paramsJSON,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("rpc: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("rpc: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rpc: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: %s: HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("rpc: decode response: %w", err)
	}

	if rpcResp.Error != nil {
		return &RPCError{
			Method:  method,
			Code:    rpcResp.Error.Code,
			Message: rpcResp.Error.Message,
			Data:    rpcResp.Error.Data,
		}
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("rpc: decode result: %w", err)
		}
	}

	return nil
}

// RPCError is a JSON-RPC error returned by the server.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("rpc: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}
