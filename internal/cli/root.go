// Package cli is the JSON-over-stdio front-end: one invocation, one
// operation, one JSON line on stdout.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"whisper-bridge/internal/config"
	"whisper-bridge/internal/domain"
	"whisper-bridge/internal/engine"
	"whisper-bridge/internal/lifecycle"
	"whisper-bridge/internal/modelcache"
	"whisper-bridge/internal/progress"
	"whisper-bridge/internal/transcribe"

	hubclient "whisper-bridge/internal/hub"
)

// errReported signals a failure whose details already went to the streams;
// main only needs the non-zero exit code.
var errReported = errors.New("operation failed")

// Options allows tests to swap the engine and capture the streams. Zero
// values select production behavior.
type Options struct {
	Config *config.Config
	Engine engine.Engine
	Stdout io.Writer
	Stderr io.Writer
}

// flags holds the per-invocation flag values.
type flags struct {
	mode          string
	model         string
	language      string
	initialPrompt string
	outputFormat  string
}

// NewRootCommand builds the bridge CLI with its mode selector.
func NewRootCommand(opts Options) *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:           "whisper-bridge [audio_file]",
		Short:         "Speech-to-text bridge: model management and transcription over JSON stdio",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, f, args)
		},
	}

	cmd.Flags().StringVar(&f.mode, "mode", "transcribe", "operation mode: transcribe, download, check, list, delete, check-ffmpeg")
	cmd.Flags().StringVar(&f.model, "model", "base", "model identifier to use")
	cmd.Flags().StringVar(&f.language, "language", "", "language code, empty for auto-detection")
	cmd.Flags().StringVar(&f.initialPrompt, "initial-prompt", "", "initial prompt to bias transcription")
	cmd.Flags().StringVar(&f.outputFormat, "output-format", "json", "output format for transcribe: json or text")

	return cmd
}

// Execute runs the CLI for main and reports whether the process should exit
// non-zero.
func Execute() error {
	return NewRootCommand(Options{}).Execute()
}

// run wires the components for one invocation and dispatches on mode.
func run(ctx context.Context, opts Options, f *flags, args []string) error {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return writeJSON(stdout, errorRecord(fmt.Sprintf("load configuration: %v", err)))
		}
		cfg = loaded
	}

	log := newLogger(stderr, cfg.LogLevel)
	hub := hubclient.NewClient(cfg.HubEndpoint, cfg.CacheDir, cfg.DownloadTimeout, log)

	eng := opts.Engine
	if eng == nil {
		eng = engine.NewExecEngine(cfg.EngineBinary, hub, log)
	}

	cache := modelcache.New(eng, engine.DefaultLoadConfig(), modelcache.DefaultCapacity, log)
	emitter := progress.NewEmitter(stderr)
	manager := lifecycle.NewManager(hub, cache, emitter, log)
	adapter := transcribe.NewAdapter(cache, log)

	switch f.mode {
	case "download":
		return writeJSON(stdout, manager.Download(ctx, f.model))
	case "check":
		return writeJSON(stdout, manager.CheckStatus(f.model))
	case "list":
		return writeJSON(stdout, manager.ListModels())
	case "delete":
		return writeJSON(stdout, manager.Delete(f.model))
	case "check-ffmpeg":
		return writeJSON(stdout, domain.FFmpegStatus{
			Available: true,
			Version:   "bundled with ctranslate2 engine",
			Success:   true,
		})
	case "transcribe":
		return runTranscribe(ctx, adapter, f, args, stdout, stderr)
	default:
		if err := writeJSON(stdout, errorRecord(fmt.Sprintf("unknown mode: %s", f.mode))); err != nil {
			return err
		}
		return errReported
	}
}

// runTranscribe handles the default mode with its json/text output split.
func runTranscribe(ctx context.Context, adapter *transcribe.Adapter, f *flags, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if err := writeJSON(stdout, errorRecord("Audio file required")); err != nil {
			return err
		}
		return errReported
	}

	result := adapter.Transcribe(ctx, transcribe.Request{
		AudioPath:     args[0],
		Model:         f.model,
		Language:      f.language,
		InitialPrompt: f.initialPrompt,
	})

	if f.outputFormat != "text" {
		return writeJSON(stdout, result)
	}

	if !result.Success {
		fmt.Fprintf(stderr, "Error: %s\n", result.Error)
		return errReported
	}
	fmt.Fprintln(stdout, result.Text)
	return nil
}

// errorRecord is the generic failure payload shared by usage errors.
type genericError struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

func errorRecord(message string) genericError {
	return genericError{Error: message}
}

// writeJSON serializes one result record as a single line on the writer.
func writeJSON(w io.Writer, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newLogger builds the stderr logger shared by all components.
func newLogger(w io.Writer, levelName string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		level = zerolog.WarnLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(level)
}
