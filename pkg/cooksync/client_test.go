package cooksync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cooksync/cooksync/internal/domain"
)

func TestExportSendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/recipes/export/obsidian" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Obsidian-Client"); got != "dev-1" {
			t.Errorf("Obsidian-Client = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]json.RawMessage
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if string(body["exportTarget"]) != `"obsidian"` {
			t.Errorf("exportTarget = %s", body["exportTarget"])
		}
		if string(body["recipeIds"]) != `[]` {
			t.Errorf("recipeIds = %s, want []", body["recipeIds"])
		}

		w.Write([]byte(`[{"id":1,"title":"Soup","content":"A"}]`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	records, err := client.Export(context.Background(), "tok", "dev-1", nil)
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if len(records) != 1 || records[0].ID != 1 || records[0].Title != "Soup" || records[0].Content != "A" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestExportBodies(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCount int
		wantErr   error
	}{
		{name: "empty", body: ""},
		{name: "whitespace", body: " \n"},
		{name: "null", body: "null"},
		{name: "false", body: "false"},
		{name: "empty string", body: `""`},
		{name: "zero", body: "0"},
		{name: "empty array", body: "[]"},
		{name: "records", body: `[{"id":1},{"id":2}]`, wantCount: 2},
		{name: "object", body: `{"id":1}`, wantErr: domain.ErrProtocol},
		{name: "garbage", body: `<html>`, wantErr: domain.ErrProtocol},
		{name: "bad record", body: `[{"id":"x"}]`, wantErr: domain.ErrProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			records, err := NewClient(Config{BaseURL: server.URL}).Export(context.Background(), "t", "d", []int64{1})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Errorf("got %d records, want %d", len(records), tt.wantCount)
			}
		})
	}
}

func TestExportStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusConflict, domain.ErrConflict},
		{http.StatusExpectationFailed, domain.ErrLocked},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		_, err := NewClient(Config{BaseURL: server.URL}).Export(context.Background(), "t", "d", nil)
		server.Close()

		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.status, err, tt.want)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != tt.status {
			t.Errorf("status %d: expected StatusError, got %v", tt.status, err)
		}
	}
}

func TestStatusErrorText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(Config{BaseURL: server.URL}).Export(context.Background(), "t", "d", nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusText != "Internal Server Error" {
		t.Errorf("StatusText = %q", se.StatusText)
	}
	if se.Unwrap() != nil {
		t.Errorf("500 should not map to a sentinel")
	}
}

func TestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(Config{BaseURL: url}).FetchToken(context.Background(), "d")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestFetchToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/clients/token" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("uuid") == "ready" {
			w.Write([]byte(`{"token":"secret"}`))
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	tok, err := client.FetchToken(context.Background(), "pending")
	if err != nil || tok != "" {
		t.Fatalf("pending: tok=%q err=%v", tok, err)
	}
	tok, err = client.FetchToken(context.Background(), "ready")
	if err != nil || tok != "secret" {
		t.Fatalf("ready: tok=%q err=%v", tok, err)
	}
}

func TestURLs(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://cooksync.app/"})

	if got, want := client.AuthorizationURL("abc"), "https://cooksync.app/export?service=obsidian&uuid=abc"; got != want {
		t.Errorf("AuthorizationURL = %q, want %q", got, want)
	}
	if got, want := client.CustomizeURL(), "https://cooksync.app/export/obsidian"; got != want {
		t.Errorf("CustomizeURL = %q, want %q", got, want)
	}
}
