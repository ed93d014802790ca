package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cashchain/core/types"
	"cashchain/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeLedgerRejected = -32010
	codeRateLimited    = -32020
	codeNotFound       = -32030
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

// handlerFunc serves one method. A nil error writes result.
type handlerFunc func(r *http.Request, req *RPCRequest) (interface{}, *RPCError)

type method struct {
	fn         handlerFunc
	governance bool
	limited    bool
}

func invalidParams(format string, args ...interface{}) *RPCError {
	return &RPCError{Code: codeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

func serverError(err error) *RPCError {
	return &RPCError{Code: codeServerError, Message: "internal error", Data: err.Error()}
}

// ledgerError reports a rejected call with its stable reason name.
func ledgerError(err error) *RPCError {
	return &RPCError{Code: codeLedgerRejected, Message: "ledger rejected call", Data: map[string]string{"reason": types.ReasonOf(err)}}
}

func notFound(what string) *RPCError {
	return &RPCError{Code: codeNotFound, Message: what + " not found"}
}

// decodeParams decodes the first positional parameter into dst. Unknown
// fields are rejected.
func decodeParams(req *RPCRequest, dst interface{}) *RPCError {
	if len(req.Params) == 0 {
		return invalidParams("params required")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidParams("invalid params: %v", err)
	}
	return nil
}

func statusFor(e *RPCError) int {
	switch e.Code {
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codeRateLimited:
		return http.StatusTooManyRequests
	case codeMethodNotFound, codeNotFound:
		return http.StatusNotFound
	case codeServerError:
		return http.StatusInternalServerError
	case codeLedgerRejected:
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

// handle decodes a JSON-RPC envelope and dispatches it.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	m, ok := s.methods[req.Method]
	if !ok {
		observability.RPC().Observe("unknown", "method_not_found", time.Since(start))
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return
	}

	result, rpcErr := s.dispatch(r, req, m)
	code := "ok"
	if rpcErr != nil {
		code = fmt.Sprint(rpcErr.Code)
	}
	observability.RPC().Observe(req.Method, code, time.Since(start))
	if rpcErr != nil {
		writeError(w, statusFor(rpcErr), req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	writeResult(w, req.ID, result)
}

func (s *Server) dispatch(r *http.Request, req *RPCRequest, m method) (interface{}, *RPCError) {
	if m.governance {
		if err := s.auth.Authorize(r, scopeGovernance); err != nil {
			s.logger.Warn("governance call rejected",
				slog.String("method", req.Method),
				slog.String("request_id", requestID(r.Context())),
				slog.Any("error", err))
			return nil, &RPCError{Code: codeUnauthorized, Message: "unauthorized"}
		}
	}
	if m.limited && !s.limiter.Allow(clientID(r)) {
		return nil, &RPCError{Code: codeRateLimited, Message: "rate limit exceeded"}
	}
	return m.fn(r, req)
}
