package remote_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/decklive/decklive-bridge/internal/infra/delivery"
	"github.com/decklive/decklive-bridge/internal/infra/remote"
)

func TestNowPlayingPostsJSON(t *testing.T) {
	var (
		mu      sync.Mutex
		gotBody map[string]any
		gotAuth string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, "secret-token")
	err := c.NowPlaying(context.Background(), delivery.NowPlayingPayload{
		EventCode: delivery.EventCodeNowPlaying,
		Title:     "Galvanize",
		Artist:    "The Chemical Brothers",
		Deck:      "2",
		Delayed:   true,
	})
	if err != nil {
		t.Fatalf("NowPlaying failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer secret-token" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotBody["event_code"] != delivery.EventCodeNowPlaying {
		t.Errorf("unexpected event_code %v", gotBody["event_code"])
	}
	if gotBody["title"] != "Galvanize" || gotBody["deck"] != "2" {
		t.Errorf("unexpected body %v", gotBody)
	}
	if gotBody["delayed"] != true {
		t.Errorf("expected delayed flag in body, got %v", gotBody["delayed"])
	}
}

func TestNon2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := remote.NewClient(srv.URL, "")
	err := c.Status(context.Background(), delivery.StatusPayload{
		EventCode: delivery.EventCodeStatus,
		Connected: true,
	})
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
}

func TestUnreachableEndpointIsAnError(t *testing.T) {
	c := remote.NewClient("http://127.0.0.1:1/nowplaying", "")
	if err := c.NowPlaying(context.Background(), delivery.NowPlayingPayload{}); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}
