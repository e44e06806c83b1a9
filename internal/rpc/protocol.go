// Package rpc implements the JSON-over-socket protocol of the phone completion
// daemon. The protocol uses newline-delimited JSON: each message is one JSON
// object followed by \n. Both unix and tcp sockets are supported.
package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/remiges-tech/phonecomplete"
)

// Method names for the protocol.
const (
	MethodGetCompletion = "get_completion"
	MethodHealthcheck   = "healthcheck"
	MethodMessage       = "message"
	MethodRebuild       = "rebuild"
)

// Error codes carried in Response.Code.
const (
	CodeBadRequest    = "bad_request"
	CodeUnknownMethod = "unknown_method"
	CodeNotReady      = "not_ready"
	CodeQueryTooLong  = "query_too_long"
	CodeBuildRunning  = "build_in_progress"
	CodeClosed        = "closed"
	CodeInternal      = "internal"
)

// Request is the wire format for client-to-server messages.
type Request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Response is the wire format for server-to-client messages.
type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   string      `json:"code,omitempty"`
}

// CompletionParams is the params for a get_completion request. Field names
// the record field to complete; only phone fields exist, so it is accepted
// and ignored.
type CompletionParams struct {
	Field  string `json:"field,omitempty"`
	Search string `json:"search"`
}

// CompletionResult is the result of a get_completion request.
type CompletionResult struct {
	Matches []phonecomplete.Match `json:"matches"`
	Count   int                   `json:"count"`
	Elapsed string                `json:"elapsed"`
}

// HealthResult is the result of a healthcheck request.
type HealthResult struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// MessageResult is the result of a message request.
type MessageResult struct {
	Message string `json:"message"`
}

// RebuildResult is the result of a rebuild request. The rebuild runs in the
// background; poll healthcheck or watch the daemon log for completion.
type RebuildResult struct {
	BuildID string `json:"build_id"`
}

// Error is a failed call as reported by the server.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server error: %s", e.Message)
	}
	return fmt.Sprintf("server error (%s): %s", e.Code, e.Message)
}

// remarshal converts a decoded params or result value into v.
func remarshal(in, v interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
