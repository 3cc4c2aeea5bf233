package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vanguard/internal/sos"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var duration time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record video evidence into the gallery without alerting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if duration <= 0 {
				return errors.New("--duration must be positive")
			}
			signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(signalCtx, ctx, ctx.logger(cmd.ErrOrStderr()), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			work := context.WithoutCancel(signalCtx)
			defer rt.Close(work)
			rt.tracker.Start(signalCtx)

			var mu sync.Mutex
			var last *sos.Completed
			rt.engine.OnCompleted(func(c *sos.Completed) {
				mu.Lock()
				last = c
				mu.Unlock()
			})

			if err := rt.engine.Arm(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Recording for %s (Ctrl-C to stop)...\n", duration)
			waitWhileRecording(signalCtx, rt.engine, duration)
			rt.engine.Finish(work)

			mu.Lock()
			done := last
			mu.Unlock()
			if done == nil || done.Recording == nil || len(done.Recording.Payload) == 0 {
				return errors.New("recording ended without evidence")
			}
			if jsonOutput {
				return writeJSON(cmd, completedJSON(done))
			}
			renderEvidence(cmd.OutOrStdout(), done)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 30*time.Second, "How long to record")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
