// Package rpc exposes the viewer core over line-delimited JSON-RPC on
// stdio. Each server process serves one client session, mirroring one
// browser tab.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"crafttree/internal/app"
)

// Server dispatches JSON-RPC requests to a session.
type Server struct {
	app     *app.App
	session *app.Session
	logger  *slog.Logger

	in  io.Reader
	out io.Writer

	handlers map[string]MethodHandler
}

// MethodHandler handles a specific JSON-RPC method.
type MethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// NewServer creates a server bound to stdio.
func NewServer(a *app.App, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	s := &Server{
		app:    a,
		logger: logger,
		in:     os.Stdin,
		out:    os.Stdout,
	}
	s.registerHandlers()
	return s
}

// SetIO redirects the transport, for tests and embedding.
func (s *Server) SetIO(in io.Reader, out io.Writer) {
	s.in = in
	s.out = out
}

// Request represents a JSON-RPC request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC response.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents a JSON-RPC error.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParse          = -32700
	ErrCodeInvalidReq     = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternal       = -32603
)

// Run reads requests line by line until EOF or context cancellation.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.in)

	s.logger.Info("rpc server starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		resp := s.handleRequest(ctx, line)
		if resp != nil {
			if err := s.writeResponse(resp); err != nil {
				s.logger.Error("failed to write response", "error", err)
			}
		}
	}
}

// handleRequest processes a single request.
func (s *Server) handleRequest(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return &Response{
			JSONRPC: "2.0",
			Error: &Error{
				Code:    ErrCodeParse,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}
	}

	s.logger.Debug("received request", "method", req.Method, "id", req.ID)

	handler, ok := s.handlers[req.Method]
	if !ok {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeMethodNotFound,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}

	result, err := handler(ctx, req.Params)
	if err != nil {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &Error{
				Code:    ErrCodeInternal,
				Message: err.Error(),
			},
		}
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// writeResponse writes a JSON-RPC response as one line.
func (s *Server) writeResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	data = append(data, '\n')
	_, err = s.out.Write(data)
	return err
}

// requireSession returns the live session or an error when the client has
// not called session.open yet.
func (s *Server) requireSession() (*app.Session, error) {
	if s.session == nil {
		return nil, fmt.Errorf("no session: call session.open first")
	}
	return s.session, nil
}
