// Package server is an in-process MCP workflow server speaking the same wire
// contract as the real thing over both bindings: HTTP POST and WebSocket
// text frames on one handler. It backs the integration tests and the local
// `mcpcli serve` command. Workflow "execution" echoes its input; real
// execution semantics belong to the remote server, not this client repo.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mcp-client/codec"
	"mcp-client/message"
)

// Options configures a Server.
type Options struct {
	APIKey string // when set, both bindings require a matching bearer token
	Logger *zap.Logger
}

// Server holds an in-memory workflow pool and dispatches the fixed
// operations against it.
type Server struct {
	apiKey   string
	logger   *zap.Logger
	cdc      codec.Codec
	upgrader websocket.Upgrader

	mu        sync.Mutex
	workflows map[string]message.Workflow
}

// New creates an empty server; Seed preloads workflows.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{
		apiKey:    opts.APIKey,
		logger:    opts.Logger,
		cdc:       &codec.JSONCodec{},
		workflows: make(map[string]message.Workflow),
	}
}

// Seed adds workflows to the pool, replacing entries with the same id.
func (s *Server) Seed(workflows ...message.Workflow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wf := range workflows {
		s.workflows[wf.ID] = wf
	}
}

// ServeHTTP answers POSTed envelopes directly and upgrades WebSocket
// handshakes into a frame loop over the same dispatch.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if websocket.IsWebSocketUpgrade(r) {
		s.serveWebSocket(w, r)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var env message.Envelope
	if err := s.cdc.Decode(body, &env); err != nil {
		http.Error(w, "malformed envelope", http.StatusBadRequest)
		return
	}

	reply := s.dispatch(&env)
	data, err := s.cdc.Encode(reply)
	if err != nil {
		http.Error(w, "encode reply", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.apiKey == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.apiKey
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env message.Envelope
		if err := s.cdc.Decode(data, &env); err != nil {
			s.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		reply := s.dispatch(&env)
		out, err := s.cdc.Encode(reply)
		if err != nil {
			s.logger.Warn("encode reply failed", zap.Error(err))
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			return
		}
	}
}

// dispatch routes one envelope to its operation handler. Unknown operations
// come back as application errors in a well-formed reply, never as dropped
// frames: the caller's correlation id must always get an answer.
func (s *Server) dispatch(env *message.Envelope) *message.Reply {
	op, err := decodeOperation(env.Data)
	if err != nil {
		return errorReply(env.ID, "malformed operation payload: "+err.Error())
	}

	s.logger.Debug("dispatching operation",
		zap.String("operation", env.Name),
		zap.String("id", env.ID))

	switch env.Name {
	case "listWorkflows", "searchWorkflows":
		return s.listWorkflows(env.ID)
	case "addWorkflow":
		return s.addWorkflows(env.ID, op.WorkflowIDs)
	case "removeWorkflow":
		return s.removeWorkflows(env.ID, op.WorkflowIDs)
	case "executeWorkflow":
		return s.executeWorkflow(env.ID, op.WorkflowIDs, op.Parameters)
	default:
		return errorReply(env.ID, "unknown operation: "+env.Name)
	}
}

// decodeOperation recovers OperationData from the envelope's decoded JSON
// payload. Custom commands may carry any shape; missing fields simply come
// back empty.
func decodeOperation(data any) (message.OperationData, error) {
	var op message.OperationData
	raw, err := json.Marshal(data)
	if err != nil {
		return op, err
	}
	if err := json.Unmarshal(raw, &op); err != nil {
		return op, err
	}
	return op, nil
}

func (s *Server) listWorkflows(id string) *message.Reply {
	s.mu.Lock()
	list := make([]message.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		list = append(list, wf)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return successReply(id, list)
}

func (s *Server) addWorkflows(id, workflowIDs string) *message.Reply {
	ids := splitIDs(workflowIDs)
	if len(ids) == 0 {
		return errorReply(id, "no workflow ids supplied")
	}

	s.mu.Lock()
	for _, wfID := range ids {
		if _, ok := s.workflows[wfID]; !ok {
			s.workflows[wfID] = message.Workflow{ID: wfID, Name: wfID, Active: true}
		}
	}
	s.mu.Unlock()

	return successReply(id, map[string]any{"status": "ok", "added": ids})
}

func (s *Server) removeWorkflows(id, workflowIDs string) *message.Reply {
	ids := splitIDs(workflowIDs)
	if len(ids) == 0 {
		return errorReply(id, "no workflow ids supplied")
	}

	s.mu.Lock()
	removed := make([]string, 0, len(ids))
	for _, wfID := range ids {
		if _, ok := s.workflows[wfID]; ok {
			delete(s.workflows, wfID)
			removed = append(removed, wfID)
		}
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return errorReply(id, "workflow not found: "+workflowIDs)
	}
	return successReply(id, map[string]any{"status": "ok", "removed": removed})
}

func (s *Server) executeWorkflow(id, workflowID, parameters string) *message.Reply {
	if workflowID == "" || workflowID == message.NullField {
		return errorReply(id, "executeWorkflow requires a workflow id")
	}

	s.mu.Lock()
	_, ok := s.workflows[workflowID]
	s.mu.Unlock()
	if !ok {
		return errorReply(id, "workflow not found: "+workflowID)
	}

	var params any
	if parameters != "" && parameters != message.NullField {
		if err := json.Unmarshal([]byte(parameters), &params); err != nil {
			return errorReply(id, "malformed parameters: "+err.Error())
		}
	}

	// Execution stub: echo what would have run.
	return successReply(id, map[string]any{
		"status":     "ok",
		"workflowId": workflowID,
		"output":     params,
	})
}

func splitIDs(workflowIDs string) []string {
	if workflowIDs == "" || workflowIDs == message.NullField {
		return nil
	}
	parts := strings.Split(workflowIDs, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

func successReply(id string, response any) *message.Reply {
	raw, err := json.Marshal(response)
	if err != nil {
		return errorReply(id, "encode response: "+err.Error())
	}
	return &message.Reply{ID: id, Response: raw}
}

func errorReply(id, msg string) *message.Reply {
	return &message.Reply{ID: id, Error: msg}
}
