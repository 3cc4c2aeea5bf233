package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vanguard/internal/hotplug"
	"vanguard/internal/logging"
	"vanguard/internal/sos"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep recording evidence, re-arming when the camera is reconnected",
		Long: "Record continuously until interrupted. When the camera disappears the recording\n" +
			"so far is saved and shared; when it comes back a new recording starts.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(signalCtx, ctx, logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			work := context.WithoutCancel(signalCtx)
			defer rt.Close(work)
			rt.tracker.Start(signalCtx)

			out := cmd.OutOrStdout()
			rt.engine.OnCompleted(func(done *sos.Completed) {
				renderEvidence(out, done)
			})

			var monitor *hotplug.Monitor
			if cfg.Camera.Hotplug {
				monitor = hotplug.NewMonitor(cfg.Camera.Device, logger, func(evCtx context.Context, event hotplug.Event) {
					rt.engine.HandleDevice(work, event)
					if event.Action == hotplug.ActionAdded && !rt.engine.Recording() {
						if err := rt.engine.Arm(evCtx); err == nil {
							fmt.Fprintln(out, "Camera reconnected; recording")
						}
					}
				})
				if err := monitor.Start(signalCtx); err != nil {
					return err
				}
				defer monitor.Stop()
			}

			if err := rt.engine.Arm(signalCtx); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Camera unavailable: %v\n", err)
				if !monitor.Running() {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Waiting for the camera to be connected...")
			} else {
				fmt.Fprintln(out, "Recording; press Ctrl-C to stop")
			}

			<-signalCtx.Done()
			logger.Info("watch shutting down")
			return nil
		},
	}
}
