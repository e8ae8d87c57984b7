// Package main is a demo harness that wraps a real Bedrock client and runs
// one invocation of each kind, printing the telemetry counters at the end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/vnfmsqkek3/bedrock-observability-go/config"
	"github.com/vnfmsqkek3/bedrock-observability-go/events"
	"github.com/vnfmsqkek3/bedrock-observability-go/external"
	"github.com/vnfmsqkek3/bedrock-observability-go/monitor"
	"github.com/vnfmsqkek3/bedrock-observability-go/telemetry"
	"github.com/vnfmsqkek3/bedrock-observability-go/trace"
)

// loadEnvFiles loads .env from standard locations
func loadEnvFiles() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		_ = godotenv.Load()
		return
	}

	configEnv := filepath.Join(homeDir, ".config", "bedrockobs", ".env")
	if _, err := os.Stat(configEnv); err == nil {
		_ = godotenv.Load(configEnv)
	}

	// Also load local .env (can override)
	_ = godotenv.Load()
}

func main() {
	loadEnvFiles()

	var (
		configPath     = flag.String("config", "", "path to YAML config (optional)")
		region         = flag.String("region", "us-east-1", "AWS region for bedrock-runtime")
		modelID        = flag.String("model", "anthropic.claude-3-haiku-20240307-v1:0", "model id to invoke")
		prompt         = flag.String("prompt", "Name three uses for a paperclip.", "prompt text")
		stream         = flag.Bool("stream", false, "use the streaming invocation")
		rag            = flag.Bool("rag", false, "run a two-step retrieval plus generation workflow under one trace")
		estimateTokens = flag.Bool("estimate-tokens", false, "estimate token usage when the provider reports none")
		logLevel       = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	cfg, err := resolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	telemetry.SetGlobalLogger(cfg.Logging)

	if cfg.SinkEndpoint != "" && cfg.SinkCredential == "" {
		cfg.SinkCredential = promptCredential()
	}

	bedrock, err := external.NewClient(*region)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Bedrock client")
	}

	var opts []monitor.Option
	if *estimateTokens {
		opts = append(opts, monitor.WithTokenCounter(events.NewTiktokenCounter()))
	}

	client, err := monitor.Wrap(bedrock, cfg, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wrap client")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tc := trace.Begin()
	ctx = trace.NewContext(ctx, tc)

	body := fmt.Sprintf(`{"anthropic_version":"bedrock-2023-05-31","max_tokens":256,"messages":[{"role":"user","content":%q}]}`, *prompt)

	switch {
	case *rag:
		runRAGWorkflow(ctx, client, *modelID, tc, *prompt)
	case *stream:
		runStreamed(ctx, client, *modelID, []byte(body))
	default:
		runSingleShot(ctx, client, *modelID, []byte(body))
	}

	// Give the emitter a moment, then report delivery counters.
	client.Close()
	stats := client.Stats()
	fmt.Printf("\ntelemetry: emitted=%d dropped=%d failed=%d\n", stats.Emitted, stats.Dropped, stats.Failed)
}

func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg := &config.Config{ServiceName: "bedrockobs-demo"}
	cfg.ApplyDefaults()
	return cfg, nil
}

// promptCredential reads the sink credential without echoing it.
func promptCredential() string {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return ""
	}
	fmt.Fprint(os.Stderr, "sink credential: ")
	key, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return ""
	}
	return string(key)
}

func runSingleShot(ctx context.Context, client *monitor.Client, modelID string, body []byte) {
	out, err := client.InvokeModel(ctx, &monitor.InvokeModelInput{ModelID: modelID, Body: body})
	if err != nil {
		log.Fatal().Err(err).Msg("invocation failed")
	}
	defer out.Body.Close()

	resp, err := io.ReadAll(out.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read response")
	}
	fmt.Printf("%s\n", resp)
}

// runRAGWorkflow issues an embedding call and a generation call under two
// spans of the same trace, so both events share one trace id while owning
// distinct completion ids.
func runRAGWorkflow(ctx context.Context, client *monitor.Client, modelID string, tc *trace.Context, prompt string) {
	retrieval := tc.Span("retrieval")
	embedBody := fmt.Sprintf(`{"inputText":%q}`, prompt)
	_, err := client.CreateEmbedding(trace.NewContext(ctx, retrieval.Context), &monitor.EmbeddingInput{
		ModelID: "amazon.titan-embed-text-v1",
		Body:    []byte(embedBody),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("retrieval step failed")
	}
	log.Info().Dur("elapsed", retrieval.Elapsed()).Msg("retrieval step done")

	generation := tc.Span("generation")
	genBody := fmt.Sprintf(`{"anthropic_version":"bedrock-2023-05-31","max_tokens":256,"messages":[{"role":"user","content":%q}]}`, prompt)
	runSingleShot(trace.NewContext(ctx, generation.Context), client, modelID, []byte(genBody))
	log.Info().Dur("elapsed", generation.Elapsed()).Msg("generation step done")
}

func runStreamed(ctx context.Context, client *monitor.Client, modelID string, body []byte) {
	out, err := client.InvokeModelWithResponseStream(ctx, &monitor.InvokeModelInput{ModelID: modelID, Body: body})
	if err != nil {
		log.Fatal().Err(err).Msg("streamed invocation failed")
	}
	defer out.Stream.Close()

	for {
		chunk, err := out.Stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatal().Err(err).Msg("stream error")
		}
		fmt.Printf("%s\n", chunk)
	}
}
