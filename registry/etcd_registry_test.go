package registry

import (
	"net"
	"testing"
	"time"
)

// These tests need a local etcd (the standard dev setup: etcd on :2379).
// They skip instead of failing when none is running.
func requireEtcd(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", "localhost:2379", 200*time.Millisecond)
	if err != nil {
		t.Skip("etcd not running on localhost:2379")
	}
	conn.Close()
}

func TestRegisterAndDiscover(t *testing.T) {
	requireEtcd(t)

	reg, err := NewEtcdRegistry([]string{"localhost:2379"})
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	ep1 := Endpoint{URL: "http://127.0.0.1:5678/api/mcp", Weight: 10, Version: "1.0"}
	ep2 := Endpoint{URL: "http://127.0.0.1:5679/api/mcp", Weight: 5, Version: "1.0"}

	if err := reg.Register("workflows", ep1, 10); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("workflows", ep2, 10); err != nil {
		t.Fatal(err)
	}

	endpoints, err := reg.Discover("workflows")
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(endpoints))
	}

	if err := reg.Deregister("workflows", ep1.URL); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	endpoints, err = reg.Discover("workflows")
	if err != nil {
		t.Fatal(err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("expected 1 endpoint after deregister, got %d", len(endpoints))
	}
	if endpoints[0].URL != ep2.URL {
		t.Errorf("remaining endpoint: got %q", endpoints[0].URL)
	}

	reg.Deregister("workflows", ep2.URL)
}

func TestWatchSeesChanges(t *testing.T) {
	requireEtcd(t)

	reg, err := NewEtcdRegistry([]string{"localhost:2379"})
	if err != nil {
		t.Fatal(err)
	}
	defer reg.Close()

	watch := reg.Watch("watched")

	ep := Endpoint{URL: "http://127.0.0.1:5680/api/mcp"}
	if err := reg.Register("watched", ep, 10); err != nil {
		t.Fatal(err)
	}
	defer reg.Deregister("watched", ep.URL)

	select {
	case endpoints := <-watch:
		if len(endpoints) != 1 || endpoints[0].URL != ep.URL {
			t.Errorf("watch emitted %+v", endpoints)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watch never fired")
	}
}
