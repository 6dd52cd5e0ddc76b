package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sferrors "github.com/randalmurphal/shipflow/errors"
)

func TestNew_MissingBinary(t *testing.T) {
	_, err := New(Config{Binary: "definitely-not-installed-xyz"})
	if !errors.Is(err, sferrors.ErrDependencyMissing) {
		t.Fatalf("New error = %v, want ErrDependencyMissing", err)
	}
	if !strings.Contains(err.Error(), "PATH") {
		t.Errorf("error should carry install guidance, got: %v", err)
	}
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Result
		wantErr bool
	}{
		{
			name: "clean json",
			data: `{"result":"done","tokens_in":100,"tokens_out":50,"session_id":"s1"}`,
			want: Result{Output: "done", TokensIn: 100, TokensOut: 50, SessionID: "s1"},
		},
		{
			name: "alternate token field names",
			data: `{"result":"done","input_tokens":7,"output_tokens":3}`,
			want: Result{Output: "done", TokensIn: 7, TokensOut: 3},
		},
		{
			name: "json surrounded by noise",
			data: "warming up...\n{\"result\":\"patched\",\"session_id\":\"s2\"}\ntrailing",
			want: Result{Output: "patched", SessionID: "s2"},
		},
		{
			name:    "no json at all",
			data:    "plain text output",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseOutput([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseOutput = %+v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOutput: %v", err)
			}
			if got.Output != tt.want.Output || got.TokensIn != tt.want.TokensIn ||
				got.TokensOut != tt.want.TokensOut || got.SessionID != tt.want.SessionID {
				t.Errorf("parseOutput = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildArgs(t *testing.T) {
	cfg := &runConfig{
		systemPrompt: "be careful",
		maxTurns:     5,
		sessionID:    "s9",
		timeout:      time.Minute,
	}
	args := buildArgs(cfg, "fix the bug")
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"--output-format json",
		"--system-prompt be careful",
		"--max-turns 5",
		"--resume s9",
		"-p fix the bug",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %v", want, args)
		}
	}
}

func TestMockRunner_RecordsPrompts(t *testing.T) {
	m := &MockRunner{}
	res, err := m.Run(context.Background(), "build it")
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "ok" {
		t.Errorf("Output = %q", res.Output)
	}
	if len(m.Prompts) != 1 || m.Prompts[0] != "build it" {
		t.Errorf("Prompts = %v", m.Prompts)
	}
}
