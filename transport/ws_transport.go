package transport

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mcp-client/codec"
	"mcp-client/message"
	"mcp-client/metrics"
)

const labelWebSocket = "websocket"

// WSOptions configures a WSTransport. URL accepts http/https schemes and
// rewrites them to ws/wss.
type WSOptions struct {
	URL     string
	APIKey  string
	Timeout time.Duration // per-call wait for the correlated reply, default 30s

	// Readiness poll used by Send when the connection is not up yet:
	// ConnectChecks probes spaced ConnectInterval apart. Defaults 10 x 500ms.
	ConnectChecks   int
	ConnectInterval time.Duration

	Codec   codec.Codec
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Dialer  *websocket.Dialer
}

// wsResult is what a pending call's channel delivers: either the correlated
// reply or the connection-level error that killed the call.
type wsResult struct {
	reply *message.Reply
	err   error
}

// WSTransport owns one long-lived WebSocket connection, a background read
// loop, and the table of in-flight correlation ids. The table is the single
// piece of state shared between callers and the read loop; every access goes
// through mu.
//
// State machine: Disconnected -> Connecting -> Connected -> (Error | Disconnected).
// There is no automatic reconnect; a later Send or Connect re-enters
// Connecting from either terminal state.
type WSTransport struct {
	url             string
	header          http.Header
	timeout         time.Duration
	connectChecks   int
	connectInterval time.Duration
	cdc             codec.Codec
	logger          *zap.Logger
	metrics         *metrics.Metrics
	dialer          *websocket.Dialer

	mu      sync.Mutex
	state   ConnState
	conn    *websocket.Conn
	pending map[string]chan wsResult

	// Writes to a gorilla conn must be serialized; concurrent Send calls
	// share one connection.
	writeMu sync.Mutex
}

// NewWS creates a WebSocket transport for the given server URL. No
// connection is opened until Connect or the first Send.
func NewWS(opts WSOptions) (*WSTransport, error) {
	wsURL, err := rewriteScheme(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ConnectChecks <= 0 {
		opts.ConnectChecks = 10
	}
	if opts.ConnectInterval <= 0 {
		opts.ConnectInterval = 500 * time.Millisecond
	}
	if opts.Codec == nil {
		opts.Codec = &codec.JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		header.Set("Authorization", "Bearer "+opts.APIKey)
	}

	return &WSTransport{
		url:             wsURL,
		header:          header,
		timeout:         opts.Timeout,
		connectChecks:   opts.ConnectChecks,
		connectInterval: opts.ConnectInterval,
		cdc:             opts.Codec,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		dialer:          opts.Dialer,
		state:           StateDisconnected,
		pending:         make(map[string]chan wsResult),
	}, nil
}

// rewriteScheme maps the configured http(s) URL onto its ws(s) equivalent.
func rewriteScheme(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

// State reports the current connection state.
func (t *WSTransport) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Connect opens the connection in a background goroutine. Idempotent: when
// already Connected or Connecting it does nothing, so callers may invoke it
// freely before every Send.
func (t *WSTransport) Connect() {
	t.mu.Lock()
	if t.state == StateConnected || t.state == StateConnecting {
		t.mu.Unlock()
		return
	}
	t.state = StateConnecting
	t.mu.Unlock()

	go t.dial()
}

func (t *WSTransport) dial() {
	conn, resp, err := t.dialer.Dial(t.url, t.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.logger.Error("websocket dial failed", zap.String("url", t.url), zap.Error(err))
		t.mu.Lock()
		t.state = StateError
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	t.conn = conn
	t.state = StateConnected
	t.mu.Unlock()

	t.logger.Info("websocket connected", zap.String("url", t.url))
	go t.readLoop(conn)
}

// readLoop runs for the lifetime of one connection. Replies can arrive in
// any order; each one is matched to its pending call by id. Malformed frames
// are logged and skipped, unmatched ids are dropped, and a read error ends
// the loop after failing every pending call so nobody hangs.
func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.connectionLost(conn, err)
			return
		}

		reply, derr := codec.DecodeReply(t.cdc, data)
		if derr != nil {
			t.logger.Warn("dropping malformed frame", zap.Error(derr))
			continue
		}

		t.mu.Lock()
		ch, ok := t.pending[reply.ID]
		if ok {
			delete(t.pending, reply.ID)
		}
		t.mu.Unlock()

		if !ok {
			// Either a late reply whose caller already timed out, or an
			// unsolicited message. This client issues no server-initiated
			// flows, so dropping is correct.
			t.logger.Debug("dropping unmatched reply", zap.String("id", reply.ID))
			continue
		}
		t.metrics.PendingAdd(-1)
		ch <- wsResult{reply: reply}
	}
}

// connectionLost records the state transition for a dead connection and
// fails every pending call.
func (t *WSTransport) connectionLost(conn *websocket.Conn, err error) {
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			t.state = StateDisconnected
			t.logger.Warn("websocket connection closed", zap.Error(err))
		} else if t.state != StateDisconnected {
			t.state = StateError
			t.logger.Error("websocket read failed", zap.Error(err))
		}
	}
	t.mu.Unlock()

	t.failPending(ErrConnectionLost)
	conn.Close()
}

// failPending delivers err to every pending call and empties the table.
func (t *WSTransport) failPending(err error) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]chan wsResult)
	t.mu.Unlock()

	for _, ch := range pending {
		ch <- wsResult{err: err}
	}
	t.metrics.PendingAdd(-float64(len(pending)))
}

// removePending drops one entry, reporting whether it was still present.
// Used on timeout so a late reply finds no waiter and is discarded.
func (t *WSTransport) removePending(id string) bool {
	t.mu.Lock()
	_, ok := t.pending[id]
	if ok {
		delete(t.pending, id)
	}
	t.mu.Unlock()
	if ok {
		t.metrics.PendingAdd(-1)
	}
	return ok
}

// pendingCount is used by tests to assert the table drains.
func (t *WSTransport) pendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// waitConnected triggers a connect if needed and polls for readiness with a
// bounded number of fixed-interval checks.
func (t *WSTransport) waitConnected() bool {
	if t.State() == StateConnected {
		return true
	}
	t.Connect()
	for i := 0; i < t.connectChecks; i++ {
		if t.State() == StateConnected {
			return true
		}
		time.Sleep(t.connectInterval)
	}
	return t.State() == StateConnected
}

// Send writes the envelope as one text frame and blocks until the read loop
// delivers the correlated reply, the per-call timeout elapses, or ctx is
// cancelled. A timed-out call removes its pending entry first, so a reply
// arriving later is inert.
func (t *WSTransport) Send(ctx context.Context, env *message.Envelope) (*message.Reply, error) {
	start := time.Now()

	if !t.waitConnected() {
		t.metrics.ObserveRequest(labelWebSocket, env.Name, "transport_error", time.Since(start))
		return nil, &Error{Attempts: 1, Err: ErrConnect}
	}

	data, err := t.cdc.Encode(env)
	if err != nil {
		return nil, err
	}

	// Register the waiter before writing so the read loop can never see a
	// reply for an id that is not yet in the table. Buffered so delivery
	// never blocks the loop, even if this caller is about to time out.
	ch := make(chan wsResult, 1)
	t.mu.Lock()
	if t.state != StateConnected || t.conn == nil {
		t.mu.Unlock()
		t.metrics.ObserveRequest(labelWebSocket, env.Name, "transport_error", time.Since(start))
		return nil, &Error{Attempts: 1, Err: ErrConnect}
	}
	conn := t.conn
	t.pending[env.ID] = ch
	t.mu.Unlock()
	t.metrics.PendingAdd(1)

	t.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, data)
	t.writeMu.Unlock()
	if err != nil {
		t.removePending(env.ID)
		t.metrics.ObserveRequest(labelWebSocket, env.Name, "transport_error", time.Since(start))
		return nil, &Error{Attempts: 1, Err: err}
	}

	timer := time.NewTimer(t.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			t.metrics.ObserveRequest(labelWebSocket, env.Name, "transport_error", time.Since(start))
			return nil, &Error{Attempts: 1, Err: res.err}
		}
		status := "ok"
		if res.reply.Error != "" {
			status = "app_error"
		}
		t.metrics.ObserveRequest(labelWebSocket, env.Name, status, time.Since(start))
		return res.reply, nil
	case <-timer.C:
		t.removePending(env.ID)
		t.logger.Warn("request timed out",
			zap.String("operation", env.Name),
			zap.String("id", env.ID),
			zap.Duration("timeout", t.timeout))
		t.metrics.ObserveRequest(labelWebSocket, env.Name, "timeout", time.Since(start))
		return nil, &Error{Attempts: 1, Err: ErrTimeout}
	case <-ctx.Done():
		t.removePending(env.ID)
		t.metrics.ObserveRequest(labelWebSocket, env.Name, "transport_error", time.Since(start))
		return nil, &Error{Attempts: 1, Err: ctx.Err()}
	}
}

// Close tears the connection down and fails any calls still in flight. The
// transport may be reused afterwards; the next Send reconnects.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.state = StateDisconnected
	t.mu.Unlock()

	t.failPending(ErrConnectionLost)

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return conn.Close()
	}
	return nil
}
