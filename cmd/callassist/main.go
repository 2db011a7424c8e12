package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callassist/pkg/audio"
	"callassist/pkg/chat"
	"callassist/pkg/config"
	"callassist/pkg/provider"
	"callassist/pkg/provider/echo"
	"callassist/pkg/provider/gemini"
	"callassist/pkg/provider/openai"
	"callassist/pkg/provider/openrouter"
	"callassist/pkg/tool"
	"callassist/pkg/tool/builtin"
	"callassist/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	llm, err := initProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init provider: %w", err)
	}
	logger.Info("provider ready", "provider", llm.Name(), "model", cfg.Model, "variant", cfg.Variant)

	dispatcher := tool.NewDispatcher(logger,
		builtin.NewSpellOutName(),
		builtin.NewDetectRobotCall(),
	)

	completer, err := chat.New(chat.Config{
		Provider:         llm,
		Dispatcher:       dispatcher,
		Model:            cfg.Model,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		Timeout:          cfg.Timeout,
		DisableStreaming: !cfg.Stream,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("init completion client: %w", err)
	}

	webCfg := web.Config{
		Completer: completer,
		Variant:   cfg.Variant,
		Logger:    logger,
	}
	if cfg.Audio && cfg.SpeechURL != "" {
		speech, err := audio.NewClient(audio.Config{BaseURL: cfg.SpeechURL, Logger: logger})
		if err != nil {
			return fmt.Errorf("init speech client: %w", err)
		}
		webCfg.Transcriber = speech
		webCfg.Synthesizer = speech
		logger.Info("speech features enabled", "service", cfg.SpeechURL)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(webCfg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// initProvider builds the configured completion backend.
func initProvider(ctx context.Context, cfg *config.Config) (provider.ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewChatModel(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Azure:       cfg.Azure,
			APIVersion:  cfg.APIVersion,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case "openrouter":
		return openrouter.NewChatModel(openrouter.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case "gemini":
		return gemini.NewChatModel(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		})
	case "echo":
		return echo.New(""), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
