package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mcp-client/codec"
	"mcp-client/message"
	"mcp-client/metrics"
)

const labelHTTP = "http"

// HTTPOptions configures an HTTPTransport. URL is required; zero values for
// the rest fall back to the defaults the server UI ships with.
type HTTPOptions struct {
	URL        string
	APIKey     string
	Timeout    time.Duration // per-attempt timeout, default 30s
	MaxRetries int           // additional attempts after the first
	RetryDelay time.Duration // fixed sleep between attempts
	Codec      codec.Codec
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	Client     *http.Client
}

// HTTPTransport performs one blocking POST round trip per attempt. Each call
// is self-contained, so concurrent callers need no coordination beyond the
// shared http.Client, which handles its own connection pooling.
type HTTPTransport struct {
	url        string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	cdc        codec.Codec
	logger     *zap.Logger
	metrics    *metrics.Metrics
	client     *http.Client
}

// NewHTTP creates an HTTP transport for the given server URL.
func NewHTTP(opts HTTPOptions) *HTTPTransport {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Codec == nil {
		opts.Codec = &codec.JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	return &HTTPTransport{
		url:        opts.URL,
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		cdc:        opts.Codec,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		client:     opts.Client,
	}
}

// Send posts the envelope and decodes the response body as a Reply.
//
// Retry policy: any network-level failure (connection refused, timeout,
// non-2xx status) is retried up to maxRetries additional times with a fixed
// retryDelay sleep between attempts. A successfully decoded Reply is final
// even when it carries an application error, and a malformed 2xx body is a
// DecodeError for the caller, not a retry.
func (t *HTTPTransport) Send(ctx context.Context, env *message.Envelope) (*message.Reply, error) {
	body, err := t.cdc.Encode(env)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	attempts := t.maxRetries + 1
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			t.metrics.ObserveRetry(env.Name)
			t.logger.Warn("retrying request",
				zap.String("operation", env.Name),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", attempts),
				zap.Error(lastErr))
			select {
			case <-time.After(t.retryDelay):
			case <-ctx.Done():
				t.metrics.ObserveRequest(labelHTTP, env.Name, "transport_error", time.Since(start))
				return nil, &Error{Attempts: attempt - 1, Err: ctx.Err()}
			}
		}

		reply, err := t.roundTrip(ctx, body)
		if err != nil {
			var decodeErr *codec.DecodeError
			if errors.As(err, &decodeErr) {
				// The server answered this call with garbage; retrying
				// would resend a request that already went through.
				t.metrics.ObserveRequest(labelHTTP, env.Name, "decode_error", time.Since(start))
				return nil, err
			}
			lastErr = err
			continue
		}

		status := "ok"
		if reply.Error != "" {
			status = "app_error"
		}
		t.metrics.ObserveRequest(labelHTTP, env.Name, status, time.Since(start))
		return reply, nil
	}

	t.metrics.ObserveRequest(labelHTTP, env.Name, "transport_error", time.Since(start))
	return nil, &Error{Attempts: attempts, Err: lastErr}
}

func (t *HTTPTransport) roundTrip(ctx context.Context, body []byte) (*message.Reply, error) {
	rctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(rctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return codec.DecodeReply(t.cdc, data)
}

// Close releases idle connections held by the underlying http.Client.
func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
