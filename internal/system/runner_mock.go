package system

import (
	"fmt"
	"sync"
)

// MockRunner is a CommandRunner for testing purposes. It records every
// command it is asked to run and answers from a canned response table
// instead of touching the host.
type MockRunner struct {
	mu       sync.Mutex
	Commands [][]string
	// Failures maps a command name to the error its invocation should return.
	Failures map[string]error
	// Handler, if set, is consulted after recording and overrides the
	// default response. Useful for tests that need side effects, like
	// creating the file a tool would have produced.
	Handler func(name string, args []string) (string, error)
}

// NewMockRunner creates a new MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Failures: make(map[string]error),
	}
}

// Run records the command and returns the canned response for it.
func (m *MockRunner) Run(name string, args ...string) (string, error) {
	return m.RunWithEnv(nil, name, args...)
}

// RunWithEnv records the command and returns the canned response for it.
// The extra environment is not recorded.
func (m *MockRunner) RunWithEnv(env []string, name string, args ...string) (string, error) {
	m.mu.Lock()
	m.Commands = append(m.Commands, append([]string{name}, args...))
	m.mu.Unlock()

	if m.Handler != nil {
		return m.Handler(name, args)
	}
	if err, ok := m.Failures[name]; ok {
		return "", err
	}
	return "", nil
}

// Calls returns how many times a command with the given name was run.
func (m *MockRunner) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, cmd := range m.Commands {
		if cmd[0] == name {
			count++
		}
	}
	return count
}

// FindCall returns the arguments of the first recorded invocation of the
// given command name, or an error if it was never run.
func (m *MockRunner) FindCall(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cmd := range m.Commands {
		if cmd[0] == name {
			return cmd[1:], nil
		}
	}
	return nil, fmt.Errorf("command %s was never run", name)
}
