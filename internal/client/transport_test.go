package client

import (
	"bytes"
	"net/http"
	"testing"
	"time"
)

func TestReadAllWithLimit(t *testing.T) {
	payload := []byte("hello")
	got, err := ReadAllWithLimit(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("expected %q, got %q", payload, got)
	}

	if _, err := ReadAllWithLimit(bytes.NewReader(payload), 2); !IsResponseTooLarge(err) {
		t.Fatalf("expected ResponseTooLargeError, got %v", err)
	}

	got, err = ReadAllWithLimit(bytes.NewReader(payload), 0)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("unlimited read failed: %q %v", got, err)
	}
}

func TestIsLoopbackHost(t *testing.T) {
	cases := map[string]bool{
		"localhost":   true,
		"LOCALHOST":   true,
		"127.0.0.1":   true,
		"::1":         true,
		"0.0.0.0":     true,
		"agent.local": false,
		"10.0.0.5":    false,
		"":            false,
	}
	for host, want := range cases {
		if got := isLoopbackHost(host); got != want {
			t.Fatalf("isLoopbackHost(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestProxyFuncBypassesLoopback(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://proxy.example:3128")
	req, err := http.NewRequest(http.MethodPost, "http://localhost:8080/invocations", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	proxy, err := proxyFunc(nil)(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proxy != nil {
		t.Fatalf("loopback request should not use a proxy, got %v", proxy)
	}
}

func TestNewHTTPClientDefaultTimeout(t *testing.T) {
	if got := NewHTTPClient(0, nil).Timeout; got != DefaultTimeout {
		t.Fatalf("expected default timeout, got %s", got)
	}
	if got := NewHTTPClient(time.Second, nil).Timeout; got != time.Second {
		t.Fatalf("expected 1s timeout, got %s", got)
	}
}
