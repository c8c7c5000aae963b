package system

import (
	"os"
	"os/exec"
)

// CommandRunner defines an interface for running system commands.
type CommandRunner interface {
	Run(name string, args ...string) (string, error)
	RunWithEnv(env []string, name string, args ...string) (string, error)
}

// ExecCommandRunner executes commands using the local shell.
type ExecCommandRunner struct{}

// NewCommandRunner returns a default command runner implementation.
func NewCommandRunner() CommandRunner {
	return &ExecCommandRunner{}
}

// Run executes a command and returns its combined output.
func (r *ExecCommandRunner) Run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// RunWithEnv executes a command with extra environment variables appended to
// the current process environment, and returns its combined output.
func (r *ExecCommandRunner) RunWithEnv(env []string, name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

// CommandExists checks if a command is available in PATH
func CommandExists(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}
