package audio

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// speechStub is a minimal in-process speech service.
func speechStub(t *testing.T, synthCalls *atomic.Int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /transcribe", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) == "garbage" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"Guten Tag"}`)
	})
	mux.HandleFunc("POST /synthesize", func(w http.ResponseWriter, r *http.Request) {
		if synthCalls != nil {
			synthCalls.Add(1)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("RIFFwav-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: baseURL, Logger: nopLogger()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestTranscribe(t *testing.T) {
	srv := speechStub(t, nil)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	t.Run("OK", func(t *testing.T) {
		text, err := c.Transcribe(ctx, []byte("pcm-bytes"), "de")
		if err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
		if text != "Guten Tag" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("Empty Audio", func(t *testing.T) {
		_, err := c.Transcribe(ctx, nil, "de")
		if !errors.Is(err, ErrEmptyAudio) {
			t.Errorf("error = %v, want ErrEmptyAudio", err)
		}
	})

	t.Run("Undecodable Audio", func(t *testing.T) {
		_, err := c.Transcribe(ctx, []byte("garbage"), "de")
		if !errors.Is(err, ErrDecode) {
			t.Errorf("error = %v, want ErrDecode", err)
		}
	})
}

func TestSynthesize(t *testing.T) {
	var calls atomic.Int64
	srv := speechStub(t, &calls)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	t.Run("Empty Text", func(t *testing.T) {
		_, err := c.Synthesize(ctx, "", "de", 1.0)
		if !errors.Is(err, ErrEmptyText) {
			t.Errorf("error = %v, want ErrEmptyText", err)
		}
	})

	t.Run("OK And Cached", func(t *testing.T) {
		first, err := c.Synthesize(ctx, "Guten Tag", "de", 1.0)
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		second, err := c.Synthesize(ctx, "Guten Tag", "de", 1.0)
		if err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if string(first) != string(second) {
			t.Error("cached result differs")
		}
		if calls.Load() != 1 {
			t.Errorf("service called %d times, want 1", calls.Load())
		}
	})

	t.Run("Different Speed Misses Cache", func(t *testing.T) {
		before := calls.Load()
		if _, err := c.Synthesize(ctx, "Guten Tag", "de", 1.5); err != nil {
			t.Fatalf("Synthesize() error = %v", err)
		}
		if calls.Load() != before+1 {
			t.Errorf("expected a cache miss, calls = %d", calls.Load())
		}
	})
}

func TestLanguageFallback(t *testing.T) {
	c := newTestClient(t, "http://unused")

	tests := []struct {
		in, want string
	}{
		{"de", "de"},
		{"en-us", "en-us"},
		{"xx", "en-us"},
		{"", "en-us"},
	}
	for _, tt := range tests {
		if got := c.resolveLanguage(tt.in); got != tt.want {
			t.Errorf("resolveLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := c.Transcribe(ctx, []byte("pcm"), "de")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}

	// The probe result sticks for the life of the client.
	_, err = c.Synthesize(ctx, "Hallo", "de", 1.0)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}
