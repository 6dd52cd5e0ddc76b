// Package agent wraps the external agent CLI that performs the actual
// implementation, review, and patch work inside a sandbox. The engine is a
// black box to the rest of the system: a prompt goes in, a structured
// result comes out.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

// ErrAgentFailed indicates the agent CLI exited with an error.
var ErrAgentFailed = errors.New("agent CLI failed")

// Runner executes one agent invocation. The workflow machine depends on
// this interface so tests can script agent behavior.
type Runner interface {
	Run(ctx context.Context, prompt string, opts ...RunOption) (*Result, error)
}

// Engine shells out to the agent CLI binary.
type Engine struct {
	binary   string
	timeout  time.Duration
	maxTurns int
}

// Config configures the engine.
type Config struct {
	Binary   string        // Agent CLI binary (default "claude")
	Timeout  time.Duration // Default per-run timeout (default 10m)
	MaxTurns int           // Default max conversation turns (default 25)
}

// New creates an engine, verifying the binary is installed. A missing
// binary surfaces DependencyMissingError with installation guidance rather
// than a raw process-not-found failure.
func New(cfg Config) (*Engine, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "claude"
	}

	if _, err := exec.LookPath(binary); err != nil {
		return nil, &sferrors.DependencyMissingError{
			Tool:    binary,
			Install: fmt.Sprintf("Install the %s CLI and make sure it is on PATH.", binary),
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 25
	}

	return &Engine{binary: binary, timeout: timeout, maxTurns: maxTurns}, nil
}

// Result is the structured outcome of one agent invocation.
type Result struct {
	Output    string        // Final output text
	TokensIn  int           // Input tokens consumed
	TokensOut int           // Output tokens generated
	SessionID string        // Session ID for multi-turn follow-ups
	Duration  time.Duration // Wall-clock execution time
	ExitCode  int           // Process exit code
}

type runConfig struct {
	workDir      string
	systemPrompt string
	maxTurns     int
	timeout      time.Duration
	sessionID    string
}

// RunOption configures a single Run invocation.
type RunOption func(*runConfig)

// WithWorkDir runs the agent inside dir, normally a run's sandbox.
func WithWorkDir(dir string) RunOption {
	return func(cfg *runConfig) { cfg.workDir = dir }
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) RunOption {
	return func(cfg *runConfig) { cfg.systemPrompt = prompt }
}

// WithMaxTurns limits conversation turns for this run.
func WithMaxTurns(n int) RunOption {
	return func(cfg *runConfig) { cfg.maxTurns = n }
}

// WithTimeout overrides the engine default timeout for this run.
func WithTimeout(d time.Duration) RunOption {
	return func(cfg *runConfig) { cfg.timeout = d }
}

// WithSession resumes a previous agent session.
func WithSession(sessionID string) RunOption {
	return func(cfg *runConfig) { cfg.sessionID = sessionID }
}

// Run implements Runner.
func (e *Engine) Run(ctx context.Context, prompt string, opts ...RunOption) (*Result, error) {
	cfg := &runConfig{
		timeout:  e.timeout,
		maxTurns: e.maxTurns,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, buildArgs(cfg, prompt)...)
	if cfg.workDir != "" {
		cmd.Dir = cfg.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &sferrors.TimeoutError{Op: "agent run", After: cfg.timeout}
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrAgentFailed, msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrAgentFailed, err)
	}

	result, err := parseOutput(stdout.Bytes())
	if err != nil {
		// Non-JSON output still counts as a successful run.
		result = &Result{Output: strings.TrimSpace(stdout.String())}
	}
	result.Duration = duration
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	return result, nil
}

func buildArgs(cfg *runConfig, prompt string) []string {
	args := []string{"--print", "--output-format", "json"}
	if cfg.systemPrompt != "" {
		args = append(args, "--system-prompt", cfg.systemPrompt)
	}
	if cfg.maxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", cfg.maxTurns))
	}
	if cfg.sessionID != "" {
		args = append(args, "--resume", cfg.sessionID)
	}
	return append(args, "-p", prompt)
}

// jsonOutput mirrors the agent CLI's JSON result, tolerating the field
// name variants different CLI versions emit.
type jsonOutput struct {
	Result       string `json:"result"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	SessionID    string `json:"session_id"`
}

func parseOutput(data []byte) (*Result, error) {
	data = bytes.TrimSpace(data)

	var out jsonOutput
	if err := json.Unmarshal(data, &out); err != nil {
		// The JSON object may be surrounded by incidental output.
		start := bytes.Index(data, []byte("{"))
		end := bytes.LastIndex(data, []byte("}"))
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no json found in agent output")
		}
		if err := json.Unmarshal(data[start:end+1], &out); err != nil {
			return nil, fmt.Errorf("parse agent output: %w", err)
		}
	}

	tokensIn := out.TokensIn
	if tokensIn == 0 {
		tokensIn = out.InputTokens
	}
	tokensOut := out.TokensOut
	if tokensOut == 0 {
		tokensOut = out.OutputTokens
	}

	return &Result{
		Output:    out.Result,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		SessionID: out.SessionID,
	}, nil
}
