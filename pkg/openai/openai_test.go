package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			var req struct {
				Model          string `json:"model"`
				ResponseFormat struct {
					Type string `json:"type"`
				} `json:"response_format"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if req.ResponseFormat.Type != "json_object" {
				http.Error(w, "json mode expected", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"model":%q,"choices":[{"index":0,"message":{"role":"assistant","content":"{\"segments\":[]}"}}],"usage":{"total_tokens":7}}`, req.Model)
		case "/v1/audio/speech":
			var req struct {
				Voice string `json:"voice"`
				Input string `json:"input"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			fmt.Fprintf(w, "%s:%s", req.Voice, req.Input)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClient(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c, err := New(&Config{Token: "token", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	if c.Voice() != "onyx" {
		t.Fatalf("Voice() = %q; want onyx", c.Voice())
	}

	ctx := context.Background()
	got, err := c.JSON(ctx, "make a program")
	if err != nil {
		t.Fatalf("JSON() err = %v; want nil", err)
	}
	if want := `{"segments":[]}`; got != want {
		t.Fatalf("JSON() = %q; want %q", got, want)
	}

	audio, err := c.Synthesize(ctx, "good evening")
	if err != nil {
		t.Fatalf("Synthesize() err = %v; want nil", err)
	}
	if want := "onyx:good evening"; string(audio) != want {
		t.Fatalf("Synthesize() = %q; want %q", audio, want)
	}
}

func TestInvalidProxy(t *testing.T) {
	if _, err := New(&Config{Proxy: "://bad"}); err == nil {
		t.Fatalf("New() err = nil; want error")
	}
}
