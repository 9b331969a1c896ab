// Package ipc carries activation requests from a second launch of the
// application to the running instance over a per-user local endpoint
// (a named pipe on Windows, a unix domain socket elsewhere). Each connection
// carries one newline-delimited JSON request and one response.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

// CommandActivate asks the running instance to bring its window forward.
const CommandActivate = "activate"

// EndpointEnv overrides the default endpoint when it passes validation.
const EndpointEnv = "YTM_DESKTOP_IPC_ENDPOINT"

// Request is a single command sent to the running instance.
type Request struct {
	Command string   `json:"command"`
	ID      string   `json:"id"`
	Args    []string `json:"args,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID    string `json:"id,omitempty"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Executor handles a request and returns a response.
type Executor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(req Request) Response

// Execute calls f(req).
func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// NewActivateRequest returns an activate request carrying the launch args.
func NewActivateRequest(args []string) Request {
	return Request{
		Command: CommandActivate,
		ID:      uuid.NewString(),
		Args:    append([]string(nil), args...),
	}
}

// DefaultEndpoint returns the endpoint for the current user, honoring
// YTM_DESKTOP_IPC_ENDPOINT when its value is acceptable on this platform.
func DefaultEndpoint() string {
	if v, ok := trustedEndpointFromEnv(); ok {
		return v
	}
	return defaultEndpoint()
}

func trustedEndpointFromEnv() (string, bool) {
	value := strings.TrimSpace(os.Getenv(EndpointEnv))
	if value == "" {
		return "", false
	}
	if !validEndpoint(value) {
		slog.Warn("[ipc] endpoint override rejected: value does not match allowed pattern", "value", value)
		return "", false
	}
	return value, true
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	if strings.TrimSpace(req.Command) == "" {
		return Request{}, errors.New("missing command")
	}
	if req.Args == nil {
		req.Args = []string{}
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// errorResponse builds a failed response for req.
func errorResponse(id string, format string, args ...any) Response {
	return Response{ID: id, OK: false, Error: fmt.Sprintf(format, args...)}
}
