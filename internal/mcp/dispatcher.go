// Package mcp implements the JSON-RPC 2.0 dispatch core of the tool-call
// protocol. The dispatcher is stateless; all it holds is the read-only
// tool registry and the server identity.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/existflow/todomcp/internal/tools"
)

// Protocol-level error codes, distinct from the application taxonomy.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInternalError  = -32603
)

// DefaultProtocolVersion is offered when the client does not request one.
const DefaultProtocolVersion = "2024-11-05"

// Request is an inbound JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the outbound envelope: the echoed id plus exactly one of
// Result or Error.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a protocol-level error.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools struct{} `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type toolListResult struct {
	Tools []tools.Descriptor `json:"tools"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Dispatcher routes JSON-RPC methods to the tool registry.
type Dispatcher struct {
	registry *tools.Registry
	name     string
	version  string
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(registry *tools.Registry, name, version string) *Dispatcher {
	return &Dispatcher{registry: registry, name: name, version: version}
}

// Dispatch handles one request and always produces a response envelope; a
// bad request never propagates a failure to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if recovered := recover(); recovered != nil {
			resp = d.errorResponse(req.ID, CodeInternalError, "Internal error", fmt.Sprint(recovered))
		}
	}()

	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "notifications/initialized":
		return d.resultResponse(req.ID, struct{}{})
	case "tools/list":
		return d.resultResponse(req.ID, toolListResult{Tools: d.registry.Descriptors()})
	case "tools/call":
		return d.handleCall(ctx, req)
	default:
		return d.errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

func (d *Dispatcher) handleInitialize(req Request) Response {
	var params initializeParams
	if len(req.Params) > 0 {
		// A malformed params object falls back to the defaults; the
		// client still gets a usable capability descriptor.
		_ = json.Unmarshal(req.Params, &params)
	}
	version := params.ProtocolVersion
	if version == "" {
		version = DefaultProtocolVersion
	}
	return d.resultResponse(req.ID, initializeResult{
		ProtocolVersion: version,
		ServerInfo:      serverInfo{Name: d.name, Version: d.version},
	})
}

func (d *Dispatcher) handleCall(ctx context.Context, req Request) Response {
	var params callParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return d.errorResponse(req.ID, CodeInternalError, "Internal error", err.Error())
		}
	}

	tool, ok := d.registry.Get(params.Name)
	if !ok {
		return d.errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("Tool not found: %s", params.Name), nil)
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}
	return d.resultResponse(req.ID, tool.Handler(ctx, args))
}

func (d *Dispatcher) resultResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: "2.0", ID: id, Result: result}
}

func (d *Dispatcher) errorResponse(id json.RawMessage, code int, message string, data any) Response {
	return Response{JSONRPC: "2.0", ID: id, Error: &ResponseError{Code: code, Message: message, Data: data}}
}

// ParseErrorResponse builds the -32700 response for an unparsable request
// body. The id is null because the request could not be read.
func ParseErrorResponse(err error) Response {
	data := "Unknown error"
	if err != nil {
		data = err.Error()
	}
	return Response{
		JSONRPC: "2.0",
		Error:   &ResponseError{Code: CodeParseError, Message: "Parse error", Data: data},
	}
}
