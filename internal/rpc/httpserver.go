package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dusk-indust/modgraph/internal/ingest"
	"github.com/dusk-indust/modgraph/internal/record"
)

var errInvalidParams = errors.New("invalid params")

// handleJSONRPC processes incoming JSON-RPC 2.0 requests and dispatches them
// by method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req JSONRPCRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidRequest, fmt.Sprintf("Invalid request: jsonrpc must be %q", JSONRPCVersion))
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodMergeRecord:
		dispatch(ctx, w, &req, s.mergeRecord)
	case MethodClearRecords:
		dispatch(ctx, w, &req, s.clearRecords)
	case MethodListRecords:
		dispatch(ctx, w, &req, s.listRecords)
	case MethodPageScripts:
		dispatch(ctx, w, &req, s.pageScripts)
	case MethodPageNavigated:
		dispatch(ctx, w, &req, s.pageNavigated)
	case MethodNetworkFinished:
		dispatch(ctx, w, &req, s.networkFinished)
	case MethodGetGraphs:
		dispatch(ctx, w, &req, s.getGraphs)
	case MethodFindPaths:
		dispatch(ctx, w, &req, s.findPaths)
	case MethodGetTree:
		dispatch(ctx, w, &req, s.getTree)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// dispatch unmarshals params into P, calls fn and writes its result. Absent
// params decode as the zero P.
func dispatch[P, R any](ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest, fn func(context.Context, P) (R, error)) {
	var params P
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
			return
		}
	}

	result, err := fn(ctx, params)
	if err != nil {
		code := ErrCodeInternal
		if errors.Is(err, errInvalidParams) {
			code = ErrCodeInvalidParams
		}
		writeJSONRPCError(w, req.ID, code, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

func (s *Server) mergeRecord(_ context.Context, p MergeParams) (record.FileRecord, error) {
	if p.URL == "" {
		return record.FileRecord{}, fmt.Errorf("%w: url is required", errInvalidParams)
	}
	return s.engine.MergeRecord(p.URL, p.Fields), nil
}

func (s *Server) clearRecords(_ context.Context, _ struct{}) (ClearResult, error) {
	s.engine.ClearAll()
	return ClearResult{Epoch: s.engine.Store().Epoch()}, nil
}

func (s *Server) listRecords(_ context.Context, _ struct{}) (record.Snapshot, error) {
	return s.engine.Snapshot(), nil
}

func (s *Server) pageScripts(ctx context.Context, p ScriptsParams) (ScriptsResult, error) {
	return ScriptsResult{Written: s.collector.DiscoverScripts(ctx, p.Scripts)}, nil
}

func (s *Server) pageNavigated(_ context.Context, _ struct{}) (AckResult, error) {
	s.collector.Navigated()
	return AckResult{OK: true}, nil
}

func (s *Server) networkFinished(ctx context.Context, ev ingest.NetworkEvent) (NetworkResult, error) {
	if ev.URL == "" {
		return NetworkResult{}, fmt.Errorf("%w: url is required", errInvalidParams)
	}
	return NetworkResult{Recorded: s.collector.RequestFinished(ctx, ev)}, nil
}

func (s *Server) getGraphs(_ context.Context, p GraphsParams) (GraphsResult, error) {
	if p.Flush {
		s.engine.Flush()
	}
	return GraphsResult{Version: s.engine.Version(), Graphs: s.engine.GetGraphs()}, nil
}

func (s *Server) findPaths(_ context.Context, p PathsParams) (PathsResult, error) {
	if p.URL == "" {
		return PathsResult{}, fmt.Errorf("%w: url is required", errInvalidParams)
	}
	if p.Flush {
		s.engine.Flush()
	}
	return PathsResult{Paths: s.engine.FindInitiatorPaths(p.URL)}, nil
}

func (s *Server) getTree(_ context.Context, p TreeParams) (TreeResult, error) {
	if p.Entrypoint == "" {
		return TreeResult{}, fmt.Errorf("%w: entrypoint is required", errInvalidParams)
	}
	if p.Flush {
		s.engine.Flush()
	}
	return TreeResult{Rows: s.engine.GetTree(p.Entrypoint)}, nil
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result any) {
	data, err := json.Marshal(result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}

	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	}

	json.NewEncoder(w).Encode(resp)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}

	json.NewEncoder(w).Encode(resp)
}
