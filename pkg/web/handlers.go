package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"callassist/pkg/audio"
	"callassist/pkg/config"
	"callassist/pkg/prompt"
	"callassist/pkg/session"
	"callassist/pkg/types"
)

// maxBodyBytes bounds uploaded documents and recorded audio.
const maxBodyBytes = 10 << 20

type startRequest struct {
	// Patient configures the phone variant; when nil the demo defaults
	// apply.
	Patient *prompt.PatientConfig `json:"patient,omitempty"`
	// Evaluation is the scored-call document for the feedback variant.
	Evaluation string `json:"evaluation,omitempty"`
	// FirstLine optionally opens the conversation from the human side.
	FirstLine string `json:"first_line,omitempty"`
}

type replyResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
}

// newSessionConfig derives the instruction builder and policy for the
// active variant from the start request.
func (s *Server) newSessionConfig(req startRequest) (session.Config, error) {
	cfg := session.Config{Completer: s.completer, Logger: s.logger}

	switch s.variant {
	case config.VariantFeedback:
		eval, err := prompt.ParseEvaluation(req.Evaluation)
		if err != nil {
			return session.Config{}, err
		}
		cfg.Policy = session.PolicyRebuild
		cfg.Build = func(history []types.Message) (string, error) {
			return prompt.BuildFeedbackPrompt(eval, history)
		}
	default:
		patient := prompt.DefaultPatientConfig()
		if req.Patient != nil {
			patient = *req.Patient
		}
		if err := patient.Validate(); err != nil {
			return session.Config{}, err
		}
		cfg.Policy = session.PolicyFixed
		cfg.Build = func([]types.Message) (string, error) {
			return prompt.BuildPhonePrompt(patient)
		}
	}
	return cfg, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sessCfg, err := s.newSessionConfig(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.store.Create(sessCfg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := sess.Start(r.Context(), req.FirstLine)
	if err != nil {
		s.store.Delete(sess.ID())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The cookie is about to be repointed; drop the superseded session so
	// repeated starts do not accumulate store entries.
	if prior, perr := s.currentSession(r); perr == nil {
		s.store.Delete(prior.ID())
	}

	s.setSessionCookie(w, sess.ID())
	writeJSON(w, http.StatusOK, replyResponse{SessionID: sess.ID(), Reply: reply})
}

type messageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, err := sess.Send(r.Context(), req.Text)
	switch {
	case errors.Is(err, session.ErrNotStarted):
		writeError(w, http.StatusConflict, "session not started")
		return
	case errors.Is(err, session.ErrAbandoned):
		writeError(w, http.StatusConflict, "session was reset")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{SessionID: sess.ID(), Reply: reply})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	sess.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type historyResponse struct {
	Started  bool            `json:"started"`
	Messages []types.Message `json:"messages"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Started:  sess.Started(),
		Messages: sess.History(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	data, err := sess.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="conversation.json"`)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	// An import always replaces the active session. The document carries its
	// own instruction text, so the replacement runs with the fixed policy
	// and a builder that never fires; reusing a rebuilt-per-turn session
	// would overwrite the loaded instruction on the next turn.
	sess, err := s.store.Create(session.Config{
		Completer: s.completer,
		Policy:    session.PolicyFixed,
		Build:     func([]types.Message) (string, error) { return "", nil },
		Logger:    s.logger,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := sess.Load(data); err != nil {
		// The prior session, if any, is untouched on failure.
		s.store.Delete(sess.ID())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if prior, perr := s.currentSession(r); perr == nil {
		s.store.Delete(prior.ID())
	}
	s.setSessionCookie(w, sess.ID())
	writeJSON(w, http.StatusOK, historyResponse{
		Started:  sess.Started(),
		Messages: sess.History(),
	})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, "speech features are not enabled")
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	text, err := s.transcriber.Transcribe(r.Context(), data, r.URL.Query().Get("language"))
	if err != nil {
		writeError(w, audioStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Speed    string `json:"speed"`
}

func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if s.synthesizer == nil {
		writeError(w, http.StatusServiceUnavailable, "speech features are not enabled")
		return
	}
	var req synthesizeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	speed, _ := strconv.ParseFloat(req.Speed, 64)

	wav, err := s.synthesizer.Synthesize(r.Context(), req.Text, req.Language, speed)
	if err != nil {
		writeError(w, audioStatus(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	_, _ = w.Write(wav)
}

// audioStatus maps the audio failure taxonomy onto HTTP statuses.
func audioStatus(err error) int {
	switch {
	case errors.Is(err, audio.ErrEmptyAudio),
		errors.Is(err, audio.ErrEmptyText),
		errors.Is(err, audio.ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, audio.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
