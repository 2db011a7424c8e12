// Package audio provides the optional speech-to-text and text-to-speech
// layer. The actual models live in an external speech service; this package
// only defines the interfaces, the failure taxonomy, and an HTTP client.
package audio

import (
	"context"
	"errors"
)

// Failure kinds are distinct so callers can disable the feature instead of
// retrying.
var (
	// ErrUnavailable means the speech service or its models cannot be
	// reached or loaded.
	ErrUnavailable = errors.New("speech service unavailable")

	// ErrEmptyAudio means transcription was asked for zero bytes.
	ErrEmptyAudio = errors.New("empty audio input")

	// ErrEmptyText means synthesis was asked for an empty string.
	ErrEmptyText = errors.New("empty text input")

	// ErrDecode means the audio bytes could not be decoded.
	ErrDecode = errors.New("audio decode failed")
)

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// Synthesizer converts reply text to speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error)
}
