package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAccount()
	c.normalizeMessaging()
	c.normalizeCamera()
	if err := c.normalizeLocation(); err != nil {
		return err
	}
	c.normalizeSharing()
	c.normalizeUpload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAccount() {
	c.Account.Email = strings.TrimSpace(c.Account.Email)
	if c.Account.Email == "" {
		if value, ok := os.LookupEnv("VANGUARD_ACCOUNT_EMAIL"); ok {
			c.Account.Email = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeMessaging() {
	c.Messaging.AppScheme = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(c.Messaging.AppScheme)), "://")
	if c.Messaging.AppScheme == "" {
		c.Messaging.AppScheme = defaultAppScheme
	}
	host := strings.TrimSpace(c.Messaging.WebHost)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	c.Messaging.WebHost = strings.TrimRight(host, "/")
	if c.Messaging.WebHost == "" {
		c.Messaging.WebHost = defaultWebHost
	}
	provider := strings.TrimSpace(c.Messaging.MapProvider)
	provider = strings.TrimPrefix(provider, "maps.")
	c.Messaging.MapProvider = strings.TrimRight(provider, "/")
	if c.Messaging.MapProvider == "" {
		c.Messaging.MapProvider = defaultMapProvider
	}
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	if c.Camera.ChunkBytes <= 0 {
		c.Camera.ChunkBytes = defaultChunkBytes
	}
	c.Camera.ContentType = strings.TrimSpace(c.Camera.ContentType)
	if c.Camera.ContentType == "" {
		c.Camera.ContentType = defaultContentType
	}
}

func (c *Config) normalizeLocation() error {
	c.Location.Source = strings.ToLower(strings.TrimSpace(c.Location.Source))
	if c.Location.Source == "" {
		c.Location.Source = defaultLocationSource
	}
	c.Location.Device = strings.TrimSpace(c.Location.Device)
	if c.Location.Device != "" {
		expanded, err := expandPath(c.Location.Device)
		if err != nil {
			return fmt.Errorf("location.device: %w", err)
		}
		c.Location.Device = expanded
	}
	return nil
}

func (c *Config) normalizeSharing() {
	c.Sharing.Command = strings.TrimSpace(c.Sharing.Command)
	if c.Sharing.CancelExitCode == 0 {
		c.Sharing.CancelExitCode = defaultShareCancelCode
	}
	c.Launcher.Command = strings.TrimSpace(c.Launcher.Command)
	if c.Launcher.Command == "" {
		c.Launcher.Command = defaultLauncherCommand
	}
}

func (c *Config) normalizeUpload() {
	c.Upload.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upload.BaseURL), "/")
	if c.Upload.BaseURL == "" {
		c.Upload.BaseURL = defaultUploadBaseURL
	}
	if c.Upload.TimeoutSeconds <= 0 {
		c.Upload.TimeoutSeconds = defaultUploadTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("VANGUARD_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
