package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMessaging(); err != nil {
		return err
	}
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateLocation(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMessaging() error {
	for _, r := range c.Messaging.AppScheme {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return fmt.Errorf("messaging.app_scheme %q contains invalid characters", c.Messaging.AppScheme)
		}
	}
	if strings.ContainsAny(c.Messaging.WebHost, "/?# ") {
		return fmt.Errorf("messaging.web_host %q must be a bare host name", c.Messaging.WebHost)
	}
	if c.Messaging.FallbackDelayMS < 0 || c.Messaging.FallbackDelayMS > maxFallbackDelayMS {
		return fmt.Errorf("messaging.fallback_delay_ms must be between 0 and %d", maxFallbackDelayMS)
	}
	return nil
}

func (c *Config) validateCamera() error {
	if c.Camera.ChunkBytes < minChunkBytes {
		return fmt.Errorf("camera.chunk_bytes must be at least %d", minChunkBytes)
	}
	return nil
}

func (c *Config) validateLocation() error {
	switch c.Location.Source {
	case LocationSourceNone:
		return nil
	case LocationSourceStatic:
		if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
			return errors.New("location.latitude must be between -90 and 90")
		}
		if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
			return errors.New("location.longitude must be between -180 and 180")
		}
		return nil
	case LocationSourceNMEA:
		if c.Location.Device == "" {
			return errors.New("location.device must be set when location.source is nmea")
		}
		return nil
	default:
		return fmt.Errorf("location.source %q is not supported (use none, static, or nmea)", c.Location.Source)
	}
}

func (c *Config) validateUpload() error {
	if !c.Upload.Enabled {
		return nil
	}
	parsed, err := url.Parse(c.Upload.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("upload.base_url %q must be an absolute URL", c.Upload.BaseURL)
	}
	if c.Account.Email == "" {
		return errors.New("account.email must be set when upload.enabled is true (or set VANGUARD_ACCOUNT_EMAIL)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}
