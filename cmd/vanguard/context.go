package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"vanguard/internal/config"
	"vanguard/internal/contacts"
	"vanguard/internal/evidence"
	"vanguard/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger writes to stderr so command output on stdout stays parseable.
// Warnings are always shown; --verbose lowers the level to debug.
func (c *commandContext) logger(w io.Writer) *slog.Logger {
	cfg, _ := c.ensureConfig()
	level := "warn"
	format := "console"
	if cfg != nil {
		format = cfg.Logging.Format
		if logging.ParseLevel(cfg.Logging.Level) > slog.LevelWarn {
			level = cfg.Logging.Level
		}
	}
	if c.verbose != nil && *c.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, Writer: w})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

func (c *commandContext) openStore(ctx context.Context) (*evidence.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := evidence.Open(ctx, cfg.EvidenceDBPath(), evidence.Options{ContentType: cfg.Camera.ContentType})
	if err != nil {
		return nil, fmt.Errorf("open evidence gallery: %w", err)
	}
	return store, nil
}

func (c *commandContext) withStore(ctx context.Context, fn func(*evidence.Store) error) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func (c *commandContext) openRegistry(ctx context.Context) (*contacts.Registry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	registry, err := contacts.NewRegistry(ctx, contacts.FileSlot{Path: cfg.ContactsPath()})
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	return registry, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
