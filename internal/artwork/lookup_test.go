package artwork

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestLookup(url string) *Lookup {
	a := NewLookup()
	a.endpoint = url
	return a
}

func TestLookup_ReturnsUpscaledURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(itunesResponse{
			Results: []itunesResult{
				{ArtworkURL100: "https://example.com/art/100x100bb.jpg"},
			},
		})
	}))
	defer srv.Close()

	got := newTestLookup(srv.URL).Lookup(context.Background(), "Queen", "A Night at the Opera")
	want := "https://example.com/art/600x600bb.jpg"
	if got != want {
		t.Errorf("Lookup() = %q, want %q", got, want)
	}
}

func TestLookup_CachesResults(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(itunesResponse{
			Results: []itunesResult{
				{ArtworkURL100: "https://example.com/art/100x100bb.jpg"},
			},
		})
	}))
	defer srv.Close()

	a := newTestLookup(srv.URL)
	ctx := context.Background()
	a.Lookup(ctx, "Queen", "A Night at the Opera")
	a.Lookup(ctx, "Queen", "A Night at the Opera")
	a.Lookup(ctx, "Queen", "A Night at the Opera")

	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 HTTP request, got %d", n)
	}
}

func TestLookup_FallsBackToSongEntity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("entity") == "album" {
			_ = json.NewEncoder(w).Encode(itunesResponse{Results: nil})
			return
		}
		_ = json.NewEncoder(w).Encode(itunesResponse{
			Results: []itunesResult{
				{ArtworkURL100: "https://example.com/art/100x100bb.jpg"},
			},
		})
	}))
	defer srv.Close()

	got := newTestLookup(srv.URL).Lookup(context.Background(), "Ninajirachi", "I Love My Computer")
	want := "https://example.com/art/600x600bb.jpg"
	if got != want {
		t.Errorf("Lookup() = %q, want %q", got, want)
	}
}

func TestLookup_ServerErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if got := newTestLookup(srv.URL).Lookup(context.Background(), "A", "B"); got != "" {
		t.Errorf("Lookup() = %q, want empty", got)
	}
}

func TestLookup_EmptyQuerySkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	if got := newTestLookup(srv.URL).Lookup(context.Background(), "", ""); got != "" {
		t.Errorf("Lookup() = %q, want empty", got)
	}
	if hits.Load() != 0 {
		t.Error("empty lookup made a request")
	}
}
