package agent

import "context"

// MockRunner is a function-field mock of Runner for testing.
type MockRunner struct {
	RunFunc func(ctx context.Context, prompt string, opts ...RunOption) (*Result, error)

	// Prompts records every prompt when RunFunc is nil.
	Prompts []string
}

// Run implements Runner.
func (m *MockRunner) Run(ctx context.Context, prompt string, opts ...RunOption) (*Result, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, prompt, opts...)
	}
	m.Prompts = append(m.Prompts, prompt)
	return &Result{Output: "ok"}, nil
}
