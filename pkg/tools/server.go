package tools

// External tool servers
//
// A tool server is a standalone executable that speaks a simple
// JSON-over-stdin/stdout protocol and may expose several tools at once:
//
//  1. On startup we send a single JSON line:
//       {"type":"describe"}
//     The server responds with its tool list:
//       {"tools":[{"name":"...","description":"...","parameters":{...}}, ...]}
//
//  2. For each tool call we send:
//       {"type":"call","call_id":"...","tool":"...","params":{...}}
//     The server responds:
//       {"text":"...","error":false}
//
// Servers are launched once and kept alive for the session. Calls to one
// server process are serialised.

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

// Server is a running external tool server process.
type Server struct {
	path string

	mu  sync.Mutex
	cmd *exec.Cmd
	enc *json.Encoder
	dec *json.Decoder

	tools []Tool
}

type serverDescribeResponse struct {
	Tools []struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"tools"`
}

type serverCallRequest struct {
	Type   string         `json:"type"`
	CallID string         `json:"call_id"`
	Tool   string         `json:"tool"`
	Params map[string]any `json:"params"`
}

type serverCallResponse struct {
	Text  string `json:"text"`
	Error bool   `json:"error"`
}

// StartServer launches the executable, queries its tool list, and returns
// the running server. Register its Tools() into a registry to use them.
func StartServer(path string, args ...string) (*Server, error) {
	cmd := exec.Command(path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("tool server %s: stdin pipe: %w", path, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("tool server %s: stdout pipe: %w", path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tool server %s: start: %w", path, err)
	}

	s := &Server{
		path: path,
		cmd:  cmd,
		enc:  json.NewEncoder(stdin),
		dec:  json.NewDecoder(bufio.NewReader(stdout)),
	}

	if err := s.enc.Encode(map[string]string{"type": "describe"}); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("tool server %s: describe request: %w", path, err)
	}

	var desc serverDescribeResponse
	if err := s.dec.Decode(&desc); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("tool server %s: describe response: %w", path, err)
	}
	if len(desc.Tools) == 0 {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("tool server %s: no tools described", path)
	}

	for _, t := range desc.Tools {
		s.tools = append(s.tools, &serverTool{
			srv: s,
			def: model.ToolDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return s, nil
}

// Tools returns the tools exposed by this server.
func (s *Server) Tools() []Tool { return s.tools }

// Close terminates the server subprocess.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.cmd.Process.Kill()
	return s.cmd.Wait()
}

func (s *Server) call(name, callID string, params map[string]any) (serverCallResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := serverCallRequest{Type: "call", CallID: callID, Tool: name, Params: params}
	if err := s.enc.Encode(req); err != nil {
		return serverCallResponse{}, fmt.Errorf("tool server %s: send call: %w", s.path, err)
	}
	var resp serverCallResponse
	if err := s.dec.Decode(&resp); err != nil {
		return serverCallResponse{}, fmt.Errorf("tool server %s: read response: %w", s.path, err)
	}
	return resp, nil
}

// serverTool delegates one named tool to its server process.
type serverTool struct {
	srv *Server
	def model.ToolDefinition
}

func (t *serverTool) Definition() model.ToolDefinition { return t.def }

func (t *serverTool) Execute(ctx context.Context, callID string, params map[string]any) (Result, error) {
	resp, err := t.srv.call(t.def.Name, callID, params)
	if err != nil {
		return ErrorResult(err), err
	}
	if resp.Error {
		return Result{Text: resp.Text, IsError: true}, nil
	}
	return Result{Text: resp.Text}, nil
}
