package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vanguard/internal/alert"
	"vanguard/internal/faults"
	"vanguard/internal/sharing"
	"vanguard/internal/sos"
)

type sosJSON struct {
	TriggerID      string        `json:"trigger_id"`
	Status         string        `json:"status"`
	Issued         bool          `json:"issued"`
	Mode           string        `json:"mode"`
	Targets        []string      `json:"targets,omitempty"`
	Message        string        `json:"message,omitempty"`
	Location       *locationJSON `json:"location,omitempty"`
	LocationStatus string        `json:"location_status"`
	Evidence       *evidenceJSON `json:"evidence,omitempty"`
	Error          string        `json:"error,omitempty"`
}

type evidenceJSON struct {
	ID        int64  `json:"id,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Saved     bool   `json:"saved"`
	SaveError string `json:"save_error,omitempty"`
	Share     string `json:"share"`
	Reference string `json:"reference,omitempty"`
	UploadURL string `json:"upload_url,omitempty"`
	UploadErr string `json:"upload_error,omitempty"`
}

func newSOSCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string
	var recordFor time.Duration
	var locationWait time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "sos",
		Short: "Alert emergency contacts with your location",
		Long: "Send an SOS to your emergency contacts through the messaging app, then its web fallback.\n\n" +
			"With --record, video evidence is captured first and the alert goes out when the\n" +
			"duration ends or on Ctrl-C. The recording is saved to the gallery and shared.",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := alert.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(signalCtx, ctx, ctx.logger(cmd.ErrOrStderr()), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			// Everything after the trigger must finish even if the user interrupts.
			work := context.WithoutCancel(signalCtx)
			defer rt.Close(work)

			rt.waitForFix(signalCtx, locationWait)

			if recordFor > 0 {
				if err := rt.engine.Arm(signalCtx); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Recording unavailable: %v\n", err)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "Recording evidence for %s (Ctrl-C to send now)...\n", recordFor)
					waitWhileRecording(signalCtx, rt.engine, recordFor)
				}
			}

			report, triggerErr := rt.engine.Trigger(work, mode)
			if report.Alert != nil && report.Alert.Issued {
				if err := report.Alert.Wait(work); err != nil {
					return err
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, reportJSON(report, triggerErr)); err != nil {
					return err
				}
			} else {
				renderReport(cmd.OutOrStdout(), report)
			}
			if triggerErr != nil && !errors.Is(triggerErr, faults.ErrNoContacts) {
				return triggerErr
			}
			if errors.Is(triggerErr, faults.ErrNoContacts) {
				return errors.New("no alert sent")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modeFlag, "mode", "m", string(alert.ModeAuto), "Target selection: auto, broadcast, or primary")
	cmd.Flags().DurationVarP(&recordFor, "record", "r", 0, "Record video evidence for this long before alerting")
	cmd.Flags().DurationVar(&locationWait, "location-wait", 3*time.Second, "How long to wait for a location fix")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// waitWhileRecording returns after d, when ctx ends, or when the recording
// stops on its own.
func waitWhileRecording(ctx context.Context, engine *sos.Engine, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for engine.Recording() {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			return
		case <-tick.C:
		}
	}
}

func renderReport(out io.Writer, report *sos.Report) {
	printStatus(out, report.Status, report.AlertErr == nil)
	if report.Location != nil {
		fmt.Fprintf(out, "Location: %.6f, %.6f\n", report.Location.Lat, report.Location.Lng)
	} else {
		fmt.Fprintf(out, "Location: unavailable (%s)\n", report.LocationStatus)
	}
	if report.Alert != nil {
		for _, attempt := range append(append([]alert.Attempt(nil), report.Alert.Attempts...), report.Alert.Fallbacks()...) {
			state := "opened"
			if attempt.Err != nil {
				state = "failed: " + attempt.Err.Error()
			}
			fmt.Fprintf(out, "  %-4s %s %s\n", attempt.Channel, contactName(report, attempt.ContactID), state)
		}
	}
	if report.Evidence != nil {
		renderEvidence(out, report.Evidence)
	}
}

func contactName(report *sos.Report, id string) string {
	for _, target := range report.Alert.Targets {
		if target.ID == id {
			return target.Name
		}
	}
	return id
}

func renderEvidence(out io.Writer, done *sos.Completed) {
	delivery := done.Delivery
	if delivery.Saved {
		fmt.Fprintf(out, "Evidence saved to gallery as #%d (%d bytes)\n", delivery.Artifact.ID, delivery.Artifact.SizeBytes)
	} else if delivery.SaveErr != nil {
		fmt.Fprintf(out, "Evidence not saved: %v\n", delivery.SaveErr)
	}
	switch delivery.Share.Result {
	case sharing.ResultShared:
		fmt.Fprintln(out, "Evidence shared")
	case sharing.ResultDownloaded:
		fmt.Fprintf(out, "Evidence copied to %s\n", delivery.Share.Reference)
	case sharing.ResultFailed:
		fmt.Fprintf(out, "Evidence copy failed: %v\n", delivery.Share.Err)
	}
	if done.UploadURL != "" {
		fmt.Fprintf(out, "Evidence uploaded: %s\n", done.UploadURL)
	} else if done.UploadErr != nil {
		fmt.Fprintf(out, "Evidence upload failed: %v\n", done.UploadErr)
	}
}

func reportJSON(report *sos.Report, err error) sosJSON {
	out := sosJSON{
		TriggerID:      report.TriggerID,
		Status:         report.Status,
		Mode:           string(report.Mode),
		LocationStatus: report.LocationStatus,
	}
	if report.Location != nil {
		out.Location = &locationJSON{Lat: report.Location.Lat, Lng: report.Location.Lng, CapturedAt: report.Location.CapturedAt}
	}
	if report.Alert != nil {
		out.Issued = report.Alert.Issued
		out.Message = report.Alert.Message
		for _, target := range report.Alert.Targets {
			out.Targets = append(out.Targets, target.Name)
		}
	}
	if err != nil {
		out.Error = err.Error()
	}
	if report.Evidence != nil {
		out.Evidence = completedJSON(report.Evidence)
	}
	return out
}

func completedJSON(done *sos.Completed) *evidenceJSON {
	delivery := done.Delivery
	ev := &evidenceJSON{
		ID:        delivery.Artifact.ID,
		SizeBytes: delivery.Artifact.SizeBytes,
		Saved:     delivery.Saved,
		Share:     string(delivery.Share.Result),
		Reference: delivery.Share.Reference,
		UploadURL: done.UploadURL,
	}
	if delivery.SaveErr != nil {
		ev.SaveError = delivery.SaveErr.Error()
	}
	if done.UploadErr != nil {
		ev.UploadErr = done.UploadErr.Error()
	}
	return ev
}
