package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	DownloadDir string `toml:"download_dir"`
}

// Account identifies the user against the remote profile service.
type Account struct {
	Email string `toml:"email"`
}

// Messaging describes the messaging service that receives distress alerts.
type Messaging struct {
	AppScheme       string `toml:"app_scheme"`
	WebHost         string `toml:"web_host"`
	FallbackDelayMS int    `toml:"fallback_delay_ms"`
	MapProvider     string `toml:"map_provider"`
}

// Camera configures the evidence capture device.
type Camera struct {
	Device      string `toml:"device"`
	ChunkBytes  int    `toml:"chunk_bytes"`
	ContentType string `toml:"content_type"`
	Hotplug     bool   `toml:"hotplug"`
}

// Location configures where position fixes come from.
type Location struct {
	// Source is one of "none", "static", or "nmea".
	Source    string  `toml:"source"`
	Device    string  `toml:"device"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// Sharing configures the native share helper. An empty command disables native sharing.
type Sharing struct {
	Command        string `toml:"command"`
	CancelExitCode int    `toml:"cancel_exit_code"`
}

// Launcher configures the program used to open deep links and web URLs.
type Launcher struct {
	Command string `toml:"command"`
}

// Upload contains settings for the remote SOS history service.
type Upload struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notices.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Vanguard.
//
// Configuration sections by subsystem:
//   - Paths: evidence database, logs, and download directory
//   - Account: account email used for evidence uploads
//   - Messaging: deep link scheme, web fallback host, fallback delay, map links
//   - Camera: capture device and chunking
//   - Location: position source (static coordinate or NMEA GPS device)
//   - Sharing: native share helper
//   - Launcher: URL opener used for alert delivery
//   - Upload: remote SOS history service
//   - Notifications: ntfy push notices
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Account       Account       `toml:"account"`
	Messaging     Messaging     `toml:"messaging"`
	Camera        Camera        `toml:"camera"`
	Location      Location      `toml:"location"`
	Sharing       Sharing       `toml:"sharing"`
	Launcher      Launcher      `toml:"launcher"`
	Upload        Upload        `toml:"upload"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vanguard.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories. The download
// directory is created on a best-effort basis; the sharing pipeline retries
// the mkdir when it actually needs to write.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.DownloadDir) != "" {
		_ = os.MkdirAll(c.Paths.DownloadDir, 0o755)
	}
	return nil
}

// EvidenceDBPath returns the SQLite database holding captured evidence.
func (c *Config) EvidenceDBPath() string {
	return filepath.Join(c.Paths.DataDir, "evidence.db")
}

// ContactsPath returns the JSON slot holding the emergency contact list.
func (c *Config) ContactsPath() string {
	return filepath.Join(c.Paths.DataDir, "contacts.json")
}

// FallbackDelay returns the pause between the app deep link and the web fallback.
func (c *Config) FallbackDelay() time.Duration {
	return time.Duration(c.Messaging.FallbackDelayMS) * time.Millisecond
}

// UploadTimeout returns the request timeout for evidence uploads.
func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.Upload.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
