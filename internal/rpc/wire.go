package rpc

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is the only supported JSON-RPC version on the control wire.
	Version = "2.0"

	// Standard JSON-RPC error codes.
	ErrParse          = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
)

// Error represents a JSON-RPC error object reported by the remote side.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("remote error %d: %s", e.Code, e.Message)
}

// message is the generic JSON-RPC envelope for requests and responses.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}
