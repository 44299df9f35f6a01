package client

import (
	"testing"
	"time"
)

func TestGetClientCachesPerURL(t *testing.T) {
	m := NewManager(5*time.Second, false)

	a := m.GetClient("http://localhost:7878/")
	b := m.GetClient("http://localhost:7878")
	if a != b {
		t.Error("trailing slash should map to the same client")
	}
	if a.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", a.Timeout)
	}

	c := m.GetClient("http://other:7878")
	if c == a {
		t.Error("different servers should get different clients")
	}

	m.ClearCache()
	if m.GetClient("http://localhost:7878") == a {
		t.Error("ClearCache should drop cached clients")
	}
}

func TestGetClientDebugTransport(t *testing.T) {
	m := NewManager(0, true)
	if m.GetClient("http://localhost:7878").Transport == nil {
		t.Error("debug clients should carry the logging transport")
	}
}
