package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"vanguard/internal/alert"
	"vanguard/internal/config"
	"vanguard/internal/contacts"
	"vanguard/internal/evidence"
	"vanguard/internal/launcher"
	"vanguard/internal/location"
	"vanguard/internal/notifications"
	"vanguard/internal/recording"
	"vanguard/internal/sharing"
	"vanguard/internal/sos"
	"vanguard/internal/upload"
)

// runtime is the full engine wired from configuration.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	store    *evidence.Store
	registry *contacts.Registry
	tracker  *location.Tracker
	sharer   *sharing.Pipeline
	engine   *sos.Engine
}

func newRuntime(ctx context.Context, c *commandContext, logger *slog.Logger, notices io.Writer) (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	registry, err := c.openRegistry(ctx)
	if err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}

	notifier := notifications.Multi(notifications.NewConsole(notices), notifications.NewService(cfg))
	tracker := location.NewTracker(locationSource(cfg), logger)
	sharer := newSharingPipeline(cfg, notifier, logger)
	dispatcher := alert.NewDispatcher(alert.Settings{
		AppScheme:     cfg.Messaging.AppScheme,
		WebHost:       cfg.Messaging.WebHost,
		MapProvider:   cfg.Messaging.MapProvider,
		FallbackDelay: cfg.FallbackDelay(),
	}, launcher.New(cfg.Launcher.Command), logger)

	deps := sos.Deps{
		Locator:      tracker,
		Contacts:     registry,
		Dispatcher:   dispatcher,
		Camera:       recording.DeviceSource{Path: cfg.Camera.Device, ChunkSize: cfg.Camera.ChunkBytes},
		ContentType:  cfg.Camera.ContentType,
		Store:        store,
		Sharer:       sharer,
		AccountEmail: cfg.Account.Email,
		Notifier:     notifier,
		Logger:       logger,
	}
	if cfg.Upload.Enabled {
		deps.Uploader = upload.NewClient(cfg.Upload.BaseURL, cfg.UploadTimeout())
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		notifier: notifier,
		store:    store,
		registry: registry,
		tracker:  tracker,
		sharer:   sharer,
		engine:   sos.New(deps),
	}, nil
}

// Close finalizes any recording, then releases hardware and the store.
func (r *runtime) Close(ctx context.Context) {
	r.engine.Close(context.WithoutCancel(ctx))
	r.tracker.Stop()
	_ = r.store.Close()
}

// waitForFix starts the tracker and waits up to timeout for a first sample.
// It returns early when the source has already failed.
func (r *runtime) waitForFix(ctx context.Context, timeout time.Duration) *location.Sample {
	r.tracker.Start(ctx)
	return waitForFix(ctx, r.tracker, timeout)
}

func waitForFix(ctx context.Context, tracker *location.Tracker, timeout time.Duration) *location.Sample {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		if sample := tracker.Latest(); sample != nil {
			return sample
		}
		if !tracker.Running() {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-tick.C:
		}
	}
}

func locationSource(cfg *config.Config) location.Source {
	switch cfg.Location.Source {
	case config.LocationSourceStatic:
		return location.StaticSource{Lat: cfg.Location.Latitude, Lng: cfg.Location.Longitude}
	case config.LocationSourceNMEA:
		return location.NMEASource{Device: cfg.Location.Device}
	default:
		return nil
	}
}

func newSharingPipeline(cfg *config.Config, notifier notifications.Service, logger *slog.Logger) *sharing.Pipeline {
	var surface sharing.Surface
	if command := sharing.NewCommandSurface(cfg.Sharing.Command, cfg.Sharing.CancelExitCode); command != nil {
		surface = command
	}
	return sharing.NewPipeline(surface, sharing.DirDownloader{Dir: cfg.Paths.DownloadDir}, notifier, logger)
}
