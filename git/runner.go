package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes external commands. The default implementation shells
// out; tests inject a MockRunner to script git behavior without a repository.
type CommandRunner interface {
	// Run executes name with args in dir and returns trimmed stdout.
	Run(dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner creates the default command runner.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements CommandRunner.
func (r *ExecRunner) Run(dir, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if output != "" {
			return output, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), output)
		}
		return output, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return output, nil
}

// MockCall records a single command invocation seen by MockRunner.
type MockCall struct {
	Dir  string
	Name string
	Args []string
}

// MockRunner is a scriptable CommandRunner for tests. Responses are keyed by
// the joined argument string; unmatched commands fall through to Default.
type MockRunner struct {
	Responses map[string]string // args joined by space -> stdout
	Errors    map[string]error  // args joined by space -> error
	Default   string            // stdout for unmatched commands
	Calls     []MockCall        // every invocation, in order
}

// NewMockRunner creates an empty mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Responses: make(map[string]string),
		Errors:    make(map[string]error),
	}
}

// Run implements CommandRunner.
func (m *MockRunner) Run(dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, MockCall{Dir: dir, Name: name, Args: args})

	key := strings.Join(args, " ")
	if err, ok := m.Errors[key]; ok {
		return m.Responses[key], err
	}
	if out, ok := m.Responses[key]; ok {
		return out, nil
	}
	return m.Default, nil
}

// CalledWith reports whether any recorded call starts with the given args.
func (m *MockRunner) CalledWith(args ...string) bool {
	for _, c := range m.Calls {
		if len(c.Args) < len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if c.Args[i] != a {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
