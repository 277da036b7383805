package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"mcp-client/codec"
	"mcp-client/message"
)

func newTestEnvelope(id string) *message.Envelope {
	return codec.BuildEnvelope(id, "listWorkflows", message.OperationData{
		Operation:   "listWorkflows",
		WorkflowIDs: message.NullField,
		Parameters:  message.NullField,
	})
}

func TestHTTPSendSuccess(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)

		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Authorization: got %q", auth)
		}

		var env message.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprintf(w, `{"id":%q,"response":{"status":"ok"}}`, env.ID)
	}))
	defer srv.Close()

	tr := NewHTTP(HTTPOptions{URL: srv.URL, APIKey: "secret", MaxRetries: 3})
	reply, err := tr.Send(context.Background(), newTestEnvelope("call-1"))
	if err != nil {
		t.Fatal(err)
	}

	if reply.ID != "call-1" {
		t.Errorf("reply id: got %q", reply.ID)
	}
	var result map[string]string
	if err := reply.DecodeResponse(&result); err != nil {
		t.Fatal(err)
	}
	if result["status"] != "ok" {
		t.Errorf("status: got %q", result["status"])
	}
	if n := atomic.LoadInt64(&attempts); n != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", n)
	}
}

func TestHTTPSendRetriesExhausted(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewHTTP(HTTPOptions{URL: srv.URL, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	_, err := tr.Send(context.Background(), newTestEnvelope("call-2"))
	if err == nil {
		t.Fatal("expected an error")
	}

	if n := atomic.LoadInt64(&attempts); n != 3 {
		t.Errorf("expected maxRetries+1 = 3 attempts, got %d", n)
	}

	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Attempts != 3 {
		t.Errorf("error attempts: got %d", terr.Attempts)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("error message should state the attempt count, got %q", err.Error())
	}
}

func TestHTTPSendNoRetryOnApplicationError(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		fmt.Fprint(w, `{"id":"call-3","error":"workflow not found"}`)
	}))
	defer srv.Close()

	tr := NewHTTP(HTTPOptions{URL: srv.URL, MaxRetries: 5, RetryDelay: 10 * time.Millisecond})
	reply, err := tr.Send(context.Background(), newTestEnvelope("call-3"))
	if err != nil {
		t.Fatal(err)
	}

	// An application error is a successful transport exchange: returned
	// immediately, never retried.
	if reply.Error != "workflow not found" {
		t.Errorf("reply error: got %q", reply.Error)
	}
	if n := atomic.LoadInt64(&attempts); n != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", n)
	}
}

func TestHTTPSendNoRetryOnMalformedReply(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&attempts, 1)
		fmt.Fprint(w, `{garbage`)
	}))
	defer srv.Close()

	tr := NewHTTP(HTTPOptions{URL: srv.URL, MaxRetries: 5, RetryDelay: 10 * time.Millisecond})
	_, err := tr.Send(context.Background(), newTestEnvelope("call-4"))
	if err == nil {
		t.Fatal("expected a decode error")
	}

	var decodeErr *codec.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *codec.DecodeError, got %T: %v", err, err)
	}
	if n := atomic.LoadInt64(&attempts); n != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", n)
	}
}

func TestHTTPSendRecoversAfterFailures(t *testing.T) {
	var attempts int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&attempts, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"id":"call-5","response":{"status":"ok"}}`)
	}))
	defer srv.Close()

	tr := NewHTTP(HTTPOptions{URL: srv.URL, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	reply, err := tr.Send(context.Background(), newTestEnvelope("call-5"))
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" {
		t.Errorf("unexpected reply error: %q", reply.Error)
	}
	if n := atomic.LoadInt64(&attempts); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestHTTPSendConnectionRefused(t *testing.T) {
	// Grab a port nobody is listening on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	tr := NewHTTP(HTTPOptions{URL: url, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	_, err := tr.Send(context.Background(), newTestEnvelope("call-6"))
	if err == nil {
		t.Fatal("expected an error")
	}
	var terr *Error
	if !errors.As(err, &terr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if terr.Attempts != 2 {
		t.Errorf("attempts: got %d, want 2", terr.Attempts)
	}
}
