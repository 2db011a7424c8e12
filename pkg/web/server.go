// Package web serves the browser front-end and the JSON API that drives a
// conversation session.
package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"callassist/pkg/audio"
	"callassist/pkg/config"
	"callassist/pkg/session"
)

const sessionCookie = "callassist_session"

// Config assembles a Server.
type Config struct {
	Completer session.Completer
	Variant   config.Variant
	// Transcriber and Synthesizer are optional; when nil the audio
	// endpoints report the feature as unavailable.
	Transcriber audio.Transcriber
	Synthesizer audio.Synthesizer
	Logger      *slog.Logger
}

// Server owns the session store and the HTTP surface. One server process
// hosts many independent sessions, resolved per request through a cookie.
type Server struct {
	store       *session.Store
	completer   session.Completer
	variant     config.Variant
	transcriber audio.Transcriber
	synthesizer audio.Synthesizer
	logger      *slog.Logger
}

func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	variant := cfg.Variant
	if variant == "" {
		variant = config.VariantPhone
	}
	return &Server{
		store:       session.NewStore(),
		completer:   cfg.Completer,
		variant:     variant,
		transcriber: cfg.Transcriber,
		synthesizer: cfg.Synthesizer,
		logger:      logger,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("POST /api/session/message", s.handleMessage)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("GET /api/session/history", s.handleHistory)
	mux.HandleFunc("GET /api/session/export", s.handleExport)
	mux.HandleFunc("POST /api/session/import", s.handleImport)
	mux.HandleFunc("POST /api/audio/transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /api/audio/synthesize", s.handleSynthesize)

	return securityHeaders(mux)
}

// securityHeaders applies the baseline response headers to every route.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'")
		next.ServeHTTP(w, r)
	})
}

// currentSession resolves the request's session from the cookie.
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, session.ErrNotFound
	}
	return s.store.Get(c.Value)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(24 * time.Hour),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
