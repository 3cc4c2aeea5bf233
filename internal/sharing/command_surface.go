package sharing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type commandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) error
}

type execCommandRunner struct{}

func (execCommandRunner) Run(ctx context.Context, env []string, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), env...)
	return cmd.Run()
}

// CommandSurface shares a file by running a helper with the file path as its
// last argument. Share metadata is passed in VANGUARD_SHARE_TITLE,
// VANGUARD_SHARE_TEXT, and VANGUARD_SHARE_TYPE. The helper exiting with
// CancelExitCode means the user dismissed the share.
type CommandSurface struct {
	command        []string
	cancelExitCode int
	tempDir        string
	runner         commandRunner
	lookPath       func(string) (string, error)
}

// NewCommandSurface parses command (program plus arguments). An empty command
// returns nil, which the pipeline treats as no native share surface.
func NewCommandSurface(command string, cancelExitCode int) *CommandSurface {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil
	}
	return &CommandSurface{
		command:        fields,
		cancelExitCode: cancelExitCode,
		runner:         execCommandRunner{},
		lookPath:       exec.LookPath,
	}
}

// CanShare reports whether the helper is installed and file has content.
func (c *CommandSurface) CanShare(file File) bool {
	if c == nil || len(c.command) == 0 || len(file.Data) == 0 {
		return false
	}
	_, err := c.lookPath(c.command[0])
	return err == nil
}

// Share stages file in a temporary directory and runs the helper on it.
func (c *CommandSurface) Share(ctx context.Context, file File) error {
	dir, err := os.MkdirTemp(c.tempDir, "vanguard-share-")
	if err != nil {
		return fmt.Errorf("stage share file: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	name := filepath.Base(file.Name)
	if name == "." || name == "" {
		name = "sos-evidence.bin"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return fmt.Errorf("stage share file: %w", err)
	}

	env := []string{
		"VANGUARD_SHARE_TITLE=" + file.Title,
		"VANGUARD_SHARE_TEXT=" + file.Text,
		"VANGUARD_SHARE_TYPE=" + file.ContentType,
	}
	args := append(append([]string(nil), c.command[1:]...), path)
	err = c.runner.Run(ctx, env, c.command[0], args...)
	if err == nil {
		return nil
	}
	var exit interface{ ExitCode() int }
	if errors.As(err, &exit) && c.cancelExitCode != 0 && exit.ExitCode() == c.cancelExitCode {
		return ErrCancelled
	}
	return fmt.Errorf("share helper %s: %w", c.command[0], err)
}
