package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIService(t *testing.T) {
	t.Run("NewAPIService", func(t *testing.T) {
		t.Run("defaults to loopback", func(t *testing.T) {
			api := NewAPIService("", nil)
			if api.baseURL != "http://127.0.0.1:8888" {
				t.Errorf("expected loopback default, got %s", api.baseURL)
			}
			if api.httpClient != http.DefaultClient {
				t.Error("expected default HTTP client")
			}
		})

		t.Run("uses the provided base URL", func(t *testing.T) {
			api := NewAPIService("http://127.0.0.1:9000", nil)
			if api.baseURL != "http://127.0.0.1:9000" {
				t.Errorf("expected provided base URL, got %s", api.baseURL)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/session" {
				t.Errorf("expected /api/session, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name":"Living Room","authenticated":true}`))
		}))
		defer srv.Close()

		api := NewAPIService(srv.URL, srv.Client())

		resp, err := api.Get(context.Background(), "/api/session")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if !resp.IsJSON {
			t.Error("expected response to be recognized as JSON")
		}

		var session struct {
			Name          string `json:"name"`
			Authenticated bool   `json:"authenticated"`
		}
		if err := resp.Decode(&session); err != nil {
			t.Fatalf("expected decode to succeed, got %v", err)
		}
		if session.Name != "Living Room" || !session.Authenticated {
			t.Errorf("unexpected session payload: %+v", session)
		}
	})

	t.Run("Post", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if ct := r.Header.Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %s", ct)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer srv.Close()

		api := NewAPIService(srv.URL, srv.Client())

		resp, err := api.Post(context.Background(), "/api/queue", []byte(`{"guest":"sam"}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("expected 201, got %d", resp.StatusCode)
		}
	})

	t.Run("non-JSON bodies are kept raw", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("plain text"))
		}))
		defer srv.Close()

		api := NewAPIService(srv.URL, srv.Client())

		resp, err := api.Get(context.Background(), "/")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if resp.IsJSON {
			t.Error("expected plain text not to be flagged as JSON")
		}
		if string(resp.Body) != "plain text" {
			t.Errorf("expected raw body, got %q", resp.Body)
		}
	})
}
