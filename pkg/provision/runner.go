package provision

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Runner executes host commands and writes configuration artifacts. Stages
// only talk to the host through it, which keeps them testable against a
// fake implementation.
type Runner interface {
	RunCmd(command string) (string, error)
	LookPath(binary string) (string, error)
	WriteFile(path, content string, mode os.FileMode) error
}

// LocalRunner runs everything synchronously on the local host. Every call
// blocks until the command completes or fails; there is no timeout.
type LocalRunner struct{}

// RunCmd runs a shell command line and returns its combined output.
func (LocalRunner) RunCmd(command string) (string, error) {
	log.Debugf("run: %s", command)
	output, err := exec.Command("bash", "-c", command).CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%q: %w: %s", command, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

// LookPath reports where a binary lives on the host, if at all.
func (LocalRunner) LookPath(binary string) (string, error) {
	return exec.LookPath(binary)
}

// WriteFile writes an artifact with its final mode set at creation time.
func (LocalRunner) WriteFile(path, content string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
