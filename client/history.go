package client

import (
	"sync"
	"time"

	"mcp-client/message"
)

// HistoryEntry records one completed call for display. History lives in
// memory only and dies with the process.
type HistoryEntry struct {
	Time      time.Time
	Operation string
	RequestID string
	Reply     *message.Reply
	Err       error
	Success   bool
}

// History is a bounded ring of the most recent calls, newest last.
type History struct {
	mu      sync.Mutex
	max     int
	entries []HistoryEntry
}

func newHistory(max int) *History {
	return &History{max: max}
}

func (h *History) add(env *message.Envelope, reply *message.Reply, err error) {
	entry := HistoryEntry{
		Time:      time.Now(),
		Operation: env.Name,
		RequestID: env.ID,
		Reply:     reply,
		Err:       err,
		Success:   err == nil && (reply == nil || reply.Error == ""),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.max {
		h.entries = h.entries[len(h.entries)-h.max:]
	}
}

func (h *History) snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// History returns a copy of the recorded calls, oldest first.
func (c *Client) History() []HistoryEntry {
	return c.history.snapshot()
}
