package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultLanguage  = "en-us"
	defaultSpeed     = 1.0
	defaultCacheSize = 128
)

// supportedLanguages mirrors the voices the speech service ships with.
// Anything else falls back to the default language rather than failing.
var supportedLanguages = map[string]bool{
	"de":    true,
	"en-us": true,
	"en-gb": true,
	"fr":    true,
	"es":    true,
}

// Config assembles a Client.
type Config struct {
	// BaseURL of the speech service, e.g. "http://localhost:5002".
	BaseURL    string
	HTTPClient *http.Client
	// CacheSize bounds the synthesis cache; 0 picks a default.
	CacheSize int
	Logger    *slog.Logger
}

// Client talks to the speech service over HTTP. The service loads its models
// once; the client mirrors that with a one-time readiness probe whose result
// is reused for the life of the process.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger

	readyOnce sync.Once
	readyErr  error

	// cache keys repeated synthesis requests; replies like greetings recur
	// verbatim across sessions.
	cache *lru.Cache[string, []byte]
}

// NewClient builds a Client. It does not touch the network; the readiness
// probe runs lazily on first use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("speech service base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create synthesis cache: %w", err)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		logger:  logger,
		cache:   cache,
	}, nil
}

// ready probes the service health endpoint once. The outcome sticks: a dead
// service at first use stays reported as ErrUnavailable without re-probing.
func (c *Client) ready(ctx context.Context) error {
	c.readyOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			c.readyErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		resp, err := c.http.Do(req)
		if err != nil {
			c.readyErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.readyErr = fmt.Errorf("%w: health returned %s", ErrUnavailable, resp.Status)
		}
	})
	return c.readyErr
}

// resolveLanguage maps an unsupported language to the default voice.
func (c *Client) resolveLanguage(language string) string {
	if language == "" || !supportedLanguages[language] {
		if language != "" {
			c.logger.Warn("unsupported language, using fallback",
				"requested", language, "fallback", defaultLanguage)
		}
		return defaultLanguage
	}
	return language
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe sends raw audio bytes to the service and returns the text.
func (c *Client) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if err := c.ready(ctx); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/transcribe?language=%s", c.baseURL, c.resolveLanguage(language))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnprocessableEntity:
		return "", fmt.Errorf("%w: service rejected audio", ErrDecode)
	default:
		return "", fmt.Errorf("%w: transcribe returned %s", ErrUnavailable, resp.Status)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.Text, nil
}

type synthesizeRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Speed    float64 `json:"speed"`
}

// Synthesize returns spoken audio for the text. Results are cached per
// text/language/speed triple.
func (c *Client) Synthesize(ctx context.Context, text, language string, speed float64) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if speed <= 0 {
		speed = defaultSpeed
	}
	lang := c.resolveLanguage(language)

	key := fmt.Sprintf("%s|%s|%.2f", lang, text, speed)
	if cached, ok := c.cache.Get(key); ok {
		return cached, nil
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, Language: lang, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: synthesize returned %s", ErrUnavailable, resp.Status)
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.cache.Add(key, wav)
	return wav, nil
}

var (
	_ Transcriber = (*Client)(nil)
	_ Synthesizer = (*Client)(nil)
)
