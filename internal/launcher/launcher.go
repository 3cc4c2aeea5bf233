// Package launcher opens URLs with the desktop's URL handler.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.CombinedOutput()
}

// CommandLauncher runs an opener such as xdg-open with the URL as its last
// argument.
type CommandLauncher struct {
	command []string
	runner  commandRunner
}

// New parses command (program plus arguments). An empty command uses xdg-open.
func New(command string) *CommandLauncher {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		fields = []string{"xdg-open"}
	}
	return &CommandLauncher{command: fields, runner: execCommandRunner{}}
}

// Open hands url to the opener and waits for it to exit.
func (l *CommandLauncher) Open(ctx context.Context, url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("empty url")
	}
	args := append(append([]string(nil), l.command[1:]...), url)
	output, err := l.runner.Run(ctx, l.command[0], args...)
	if err != nil {
		if detail := strings.TrimSpace(string(output)); detail != "" {
			return fmt.Errorf("%s: %w: %s", l.command[0], err, detail)
		}
		return fmt.Errorf("%s: %w", l.command[0], err)
	}
	return nil
}
