package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/boristopalov/veritas/internal/logging"
	"github.com/boristopalov/veritas/internal/server"
	"github.com/boristopalov/veritas/pkg/classifier"
	"github.com/boristopalov/veritas/pkg/config"
	"github.com/boristopalov/veritas/pkg/core"
	"github.com/boristopalov/veritas/pkg/factcheck"
	"github.com/boristopalov/veritas/pkg/providers"
	"github.com/boristopalov/veritas/pkg/search"
	"github.com/boristopalov/veritas/pkg/transcript"
	"github.com/spf13/cobra"
)

// setup loads config, installs the logger and builds the fact-check service.
func setup(ctx context.Context) (*config.Config, *factcheck.Service, *slog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	searcher, err := search.NewClient(
		search.WithAPIKey(cfg.Search.APIKey),
		search.WithBaseURL(cfg.Search.BaseURL),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithRateLimit(cfg.Search.RateLimit, cfg.Search.Burst),
		search.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create search client: %w", err)
	}

	var providerOpts []providers.ProviderOption
	if cfg.LLM.APIKey != "" {
		providerOpts = append(providerOpts, providers.WithAPIKey(cfg.LLM.APIKey))
	}
	if cfg.LLM.BaseURL != "" {
		providerOpts = append(providerOpts, providers.WithBaseURL(cfg.LLM.BaseURL))
	}
	llm, err := providers.New(ctx, cfg.LLM.Provider, providerOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create %s client: %w", cfg.LLM.Provider, err)
	}

	model := cfg.LLM.Model
	if model == "" {
		model = providers.DefaultModel(cfg.LLM.Provider)
	}
	cls, err := classifier.NewLLMClassifier(llm, model,
		classifier.WithTimeout(cfg.Agents.Timeout),
		classifier.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("pipeline ready", "provider", cfg.LLM.Provider, "model", model)

	svc := factcheck.NewService(searcher, cls,
		factcheck.WithAgentTimeout(cfg.Agents.Timeout),
		factcheck.WithLogger(logger),
	)
	return cfg, svc, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, svc, logger, err := setup(ctx)
	if err != nil {
		return err
	}

	srv := server.New(svc,
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
		server.WithLive(cfg.Live.Window, cfg.Live.Interval),
		server.WithLogger(logger),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, svc, _, err := setup(ctx)
	if err != nil {
		return err
	}
	v, err := svc.Check(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return printVerdict(cmd.OutOrStdout(), v)
}

func runTranscript(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	segments, err := readSegments(in)
	if err != nil {
		return err
	}
	text := transcript.Combine(segments)
	if text == "" {
		return errors.New("transcript has no speech")
	}

	_, svc, _, err := setup(ctx)
	if err != nil {
		return err
	}
	v, err := svc.Check(ctx, text)
	if err != nil {
		return err
	}
	return printVerdict(cmd.OutOrStdout(), v)
}

func readSegments(r io.Reader) ([]string, error) {
	var segments []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		segments = append(segments, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return segments, nil
}

func printVerdict(w io.Writer, v core.Verdict) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
