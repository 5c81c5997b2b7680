package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"whisper-bridge/internal/catalog"
	"whisper-bridge/internal/hub"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// ExecEngine loads models by resolving their local snapshot and transcribes
// by invoking the whisper-ctranslate2 CLI.
type ExecEngine struct {
	binary string
	hub    *hub.Client
	runner commandRunner
	log    zerolog.Logger

	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
}

// NewExecEngine constructs the production engine with OS dependencies.
func NewExecEngine(binary string, hubClient *hub.Client, log zerolog.Logger) *ExecEngine {
	return &ExecEngine{
		binary:    binary,
		hub:       hubClient,
		runner:    &execRunner{},
		log:       log.With().Str("component", "engine").Logger(),
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
	}
}

// Load resolves the model's local snapshot and returns a handle bound to the
// given compute configuration. A model without a local snapshot still loads:
// the engine is passed the model name and fetches weights on first use, which
// mirrors the wrapped library's behavior.
func (e *ExecEngine) Load(ctx context.Context, model string, cfg LoadConfig) (Model, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model identifier is required")
	}

	repo := catalog.Resolve(model)
	modelDir := ""
	if weightPath, ok := e.hub.TryToLoadFromCache(repo, hub.WeightFileName); ok {
		modelDir = filepath.Dir(weightPath)
	} else if e.hub.IsDownloaded(repo) {
		// Marker exists but the canonical weight file does not: the snapshot
		// is incomplete and loading it would fail at transcription time.
		return nil, fmt.Errorf("snapshot for %s is missing %s", repo, hub.WeightFileName)
	}

	e.log.Debug().Str("model", model).Str("model_dir", modelDir).Msg("model handle ready")
	return &execModel{
		engine:   e,
		model:    model,
		modelDir: modelDir,
		cfg:      cfg,
	}, nil
}

// execModel is a Model handle bound to one identifier and compute config.
type execModel struct {
	engine   *ExecEngine
	model    string
	modelDir string
	cfg      LoadConfig
}

// transcriptArtifact matches the JSON transcript the CLI writes.
type transcriptArtifact struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// Transcribe runs the engine CLI against the audio file and parses the JSON
// transcript artifact.
func (m *execModel) Transcribe(ctx context.Context, audioPath string, opts TranscribeOptions) (Result, error) {
	outputDir, err := m.engine.mkdirTemp("", "whisper-bridge-*")
	if err != nil {
		return Result{}, fmt.Errorf("create transcript workspace: %w", err)
	}
	defer func() { _ = m.engine.removeAll(outputDir) }()

	args := buildTranscribeArgs(audioPath, m.model, m.modelDir, m.cfg, opts, outputDir)
	result, runErr := m.engine.runner.Run(ctx, m.engine.binary, args...)
	if runErr != nil {
		detail := strings.TrimSpace(result.Stderr)
		if detail == "" {
			detail = runErr.Error()
		}
		return Result{}, fmt.Errorf("transcription failed (exit %d): %s", result.ExitCode, detail)
	}

	artifactPath := filepath.Join(outputDir, transcriptFileName(audioPath))
	data, err := m.engine.readFile(artifactPath)
	if err != nil {
		return Result{}, fmt.Errorf("engine completed but transcript artifact is missing: %w", err)
	}

	var artifact transcriptArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return Result{}, fmt.Errorf("parse transcript artifact: %w", err)
	}

	return Result{
		Segments: artifact.Segments,
		Language: artifact.Language,
	}, nil
}

// buildTranscribeArgs builds the engine CLI invocation for one audio file.
func buildTranscribeArgs(audioPath, model, modelDir string, cfg LoadConfig, opts TranscribeOptions, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", model,
		"--device", cfg.Device,
		"--compute_type", cfg.ComputeType,
		"--beam_size", strconv.Itoa(opts.BeamSize),
		"--output_format", "json",
		"--output_dir", outputDir,
	}

	if modelDir != "" {
		args = append(args, "--model_directory", modelDir)
	}
	if lang := strings.TrimSpace(opts.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if prompt := strings.TrimSpace(opts.InitialPrompt); prompt != "" {
		args = append(args, "--initial_prompt", prompt)
	}

	return args
}

// transcriptFileName builds the artifact name the CLI derives from the input.
func transcriptFileName(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// NewExecEngineForTests constructs an engine with injectable dependencies.
func NewExecEngineForTests(
	binary string,
	hubClient *hub.Client,
	runner commandRunner,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	readFile func(name string) ([]byte, error),
	log zerolog.Logger,
) *ExecEngine {
	return &ExecEngine{
		binary:    binary,
		hub:       hubClient,
		runner:    runner,
		log:       log,
		mkdirTemp: mkdirTemp,
		removeAll: removeAll,
		readFile:  readFile,
	}
}
