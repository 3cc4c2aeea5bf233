package config

const (
	defaultConfigPath      = "~/.config/vanguard/config.toml"
	defaultDataDir         = "~/.local/share/vanguard"
	defaultLogDir          = "~/.local/share/vanguard/logs"
	defaultDownloadDir     = "~/Downloads"
	defaultAppScheme       = "whatsapp"
	defaultWebHost         = "web.whatsapp.com"
	defaultFallbackDelayMS = 1500
	defaultMapProvider     = "google.com"
	defaultCameraDevice    = "/dev/video0"
	defaultChunkBytes      = 64 * 1024
	defaultContentType     = "video/webm"
	defaultLocationSource  = LocationSourceNone
	defaultLauncherCommand = "xdg-open"
	defaultShareCancelCode = 130
	defaultUploadBaseURL   = "http://localhost:5000/api/users"
	defaultUploadTimeout   = 60
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	maxFallbackDelayMS     = 60_000
	minChunkBytes          = 1024
)

// Location source identifiers accepted in location.source.
const (
	LocationSourceNone   = "none"
	LocationSourceStatic = "static"
	LocationSourceNMEA   = "nmea"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			DownloadDir: defaultDownloadDir,
		},
		Messaging: Messaging{
			AppScheme:       defaultAppScheme,
			WebHost:         defaultWebHost,
			FallbackDelayMS: defaultFallbackDelayMS,
			MapProvider:     defaultMapProvider,
		},
		Camera: Camera{
			Device:      defaultCameraDevice,
			ChunkBytes:  defaultChunkBytes,
			ContentType: defaultContentType,
			Hotplug:     true,
		},
		Location: Location{
			Source: defaultLocationSource,
		},
		Sharing: Sharing{
			CancelExitCode: defaultShareCancelCode,
		},
		Launcher: Launcher{
			Command: defaultLauncherCommand,
		},
		Upload: Upload{
			BaseURL:        defaultUploadBaseURL,
			TimeoutSeconds: defaultUploadTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
