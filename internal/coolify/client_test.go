package coolify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare ip", raw: "203.0.113.10", want: "http://203.0.113.10:8000"},
		{name: "bare host", raw: "coolify.example.com", want: "http://coolify.example.com:8000"},
		{name: "http no port", raw: "http://203.0.113.10", want: "http://203.0.113.10:8000"},
		{name: "https no port", raw: "https://coolify.example.com", want: "https://coolify.example.com:8000"},
		{name: "explicit port kept", raw: "http://203.0.113.10:9000", want: "http://203.0.113.10:9000"},
		{name: "https explicit port kept", raw: "https://coolify.example.com:443", want: "https://coolify.example.com:443"},
		{name: "trailing slash stripped", raw: "http://203.0.113.10:8000/", want: "http://203.0.113.10:8000"},
		{name: "empty", raw: "", wantErr: true},
		{name: "whitespace", raw: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBaseURL(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "test-token", false)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, srv
}

func TestNewClientRequiresToken(t *testing.T) {
	if _, err := NewClient("203.0.113.10", "", false); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestHTMLBodyIsResponseFormatError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>502 Bad Gateway</h1></body></html>"))
	}))

	_, err := client.ListServers(context.Background())
	var fmtErr *ResponseFormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
	if fmtErr.Excerpt == "" {
		t.Error("expected an excerpt of the offending body")
	}
}

func TestGetRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[{"uuid":"srv-1","name":"vps","ip":"203.0.113.10"}]`))
	}))

	servers, err := client.ListServers(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(servers) != 1 || servers[0].UUID != "srv-1" {
		t.Errorf("unexpected servers: %+v", servers)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestWritesAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.CreateProject(context.Background(), "demo", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("POST retried %d times; writes must be attempted exactly once", got)
	}
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListServers(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("401 retried %d times", got)
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"name already taken"}`))
	}))

	_, err := client.CreateProject(context.Background(), "demo", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "name already taken" {
		t.Errorf("Message = %q", apiErr.Message)
	}
}

func TestAuthorizationHeaderSent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`"4.0.0-beta.300"`))
	}))

	if _, err := client.CheckVersion(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
