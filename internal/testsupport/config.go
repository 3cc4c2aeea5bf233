package testsupport

import (
	"path/filepath"
	"testing"

	"vanguard/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Notifications are disabled and location is off unless an option sets it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfgVal.Camera.Device = filepath.Join(base, "camera")
	cfgVal.Camera.Hotplug = false
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Location.Source = config.LocationSourceNone

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStaticLocation pins the position source to a fixed coordinate.
func WithStaticLocation(lat, lng float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Location.Source = config.LocationSourceStatic
		b.cfg.Location.Latitude = lat
		b.cfg.Location.Longitude = lng
	}
}

// WithCameraDevice overrides the capture device path.
func WithCameraDevice(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Camera.Device = path
	}
}

// WithLauncher writes a stub URL opener that appends each URL to a log file
// under the base directory and points the launcher at it.
func WithLauncher() ConfigOption {
	return func(b *configBuilder) {
		script := "#!/bin/sh\necho \"$@\" >> " + LauncherLog(b.cfg) + "\n"
		target := filepath.Join(b.baseDir, "bin", "open-url")
		WriteExecutable(b.t, target, script)
		b.cfg.Launcher.Command = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// LauncherLog is the file the WithLauncher stub writes opened URLs to.
func LauncherLog(cfg *config.Config) string {
	return filepath.Join(BaseDir(cfg), "opened-urls.log")
}
