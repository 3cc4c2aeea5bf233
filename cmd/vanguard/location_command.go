package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vanguard/internal/alert"
	"vanguard/internal/location"
)

type locationJSON struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	CapturedAt time.Time `json:"captured_at"`
}

func newLocationCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "location",
		Short: "Show the current location fix",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tracker := location.NewTracker(locationSource(cfg), ctx.logger(cmd.ErrOrStderr()))
			tracker.Start(cmd.Context())
			defer tracker.Stop()

			sample := waitForFix(cmd.Context(), tracker, wait)
			status := tracker.Status()

			if jsonOutput {
				payload := map[string]any{"status": status}
				if sample != nil {
					payload["location"] = locationJSON{Lat: sample.Lat, Lng: sample.Lng, CapturedAt: sample.CapturedAt}
					payload["map_link"] = alert.MapLink(cfg.Messaging.MapProvider, *sample)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			if sample == nil {
				if status == location.StatusMonitoring {
					status = "No fix yet"
				}
				printStatus(out, status, false)
				return nil
			}
			printStatus(out, status, true)
			fmt.Fprintf(out, "Latitude:  %.6f\n", sample.Lat)
			fmt.Fprintf(out, "Longitude: %.6f\n", sample.Lng)
			fmt.Fprintf(out, "Map:       %s\n", alert.MapLink(cfg.Messaging.MapProvider, *sample))
			return nil
		},
	}

	cmd.Flags().DurationVarP(&wait, "wait", "w", 5*time.Second, "How long to wait for a fix")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
