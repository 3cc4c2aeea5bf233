package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vanguard/internal/config"
	"vanguard/internal/evidence"
	"vanguard/internal/notifications"
	"vanguard/internal/sharing"
)

type artifactJSON struct {
	ID          int64     `json:"id"`
	CapturedAt  time.Time `json:"captured_at"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	FileName    string    `json:"file_name"`
}

func newGalleryCommand(ctx *commandContext) *cobra.Command {
	galleryCmd := &cobra.Command{
		Use:     "gallery",
		Aliases: []string{"g"},
		Short:   "Browse and manage saved evidence",
	}

	galleryCmd.AddCommand(newGalleryListCommand(ctx))
	galleryCmd.AddCommand(newGalleryDeleteCommand(ctx))
	galleryCmd.AddCommand(newGalleryShareCommand(ctx))
	galleryCmd.AddCommand(newGalleryExportCommand(ctx))
	return galleryCmd
}

func newGalleryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(store *evidence.Store) error {
				summaries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					items := make([]artifactJSON, 0, len(summaries))
					for _, s := range summaries {
						items = append(items, artifactJSON{
							ID:          s.ID,
							CapturedAt:  s.CapturedAt,
							SizeBytes:   s.SizeBytes,
							ContentType: s.ContentType,
							FileName:    sharing.SuggestedName(s.ID, s.ContentType),
						})
					}
					return writeJSON(cmd, items)
				}

				out := cmd.OutOrStdout()
				if len(summaries) == 0 {
					fmt.Fprintln(out, "Gallery is empty")
					return nil
				}
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.CapturedAt.Local().Format("2006-01-02 15:04:05"),
						humanize.Time(s.CapturedAt),
						humanize.Bytes(uint64(s.SizeBytes)),
						s.ContentType,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Captured", "Age", "Size", "Type"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newGalleryDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete recordings from the gallery",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseArtifactIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(store *evidence.Store) error {
				for _, id := range ids {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
				}
				return nil
			})
		},
	}
}

func newGalleryShareCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Share a recording, or save a copy when sharing is unavailable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			notifier := notifications.Multi(notifications.NewConsole(cmd.ErrOrStderr()), notifications.NewService(cfg))
			pipeline := newSharingPipeline(cfg, notifier, ctx.logger(cmd.ErrOrStderr()))
			return offerArtifact(cmd, ctx, args[0], pipeline)
		},
	}
}

func newGalleryExportCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Copy a recording to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := cfg.Paths.DownloadDir
			if strings.TrimSpace(dir) != "" {
				if target, err = config.ExpandPath(dir); err != nil {
					return err
				}
			}
			pipeline := sharing.NewPipeline(nil, sharing.DirDownloader{Dir: target}, nil, ctx.logger(cmd.ErrOrStderr()))
			return offerArtifact(cmd, ctx, args[0], pipeline)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (default paths.download_dir)")
	return cmd
}

func offerArtifact(cmd *cobra.Command, ctx *commandContext, arg string, pipeline *sharing.Pipeline) error {
	ids, err := parseArtifactIDs([]string{arg})
	if err != nil {
		return err
	}
	var artifact *evidence.Artifact
	err = ctx.withStore(cmd.Context(), func(store *evidence.Store) error {
		artifact, err = store.Get(cmd.Context(), ids[0])
		return err
	})
	if err != nil {
		return err
	}
	if artifact == nil {
		return fmt.Errorf("recording #%d not found", ids[0])
	}

	outcome := pipeline.Offer(context.WithoutCancel(cmd.Context()), *artifact, "")
	out := cmd.OutOrStdout()
	switch outcome.Result {
	case sharing.ResultShared:
		fmt.Fprintf(out, "Shared #%d\n", artifact.ID)
	case sharing.ResultCancelled:
		fmt.Fprintln(out, "Share cancelled")
	case sharing.ResultDownloaded:
		fmt.Fprintf(out, "Saved #%d to %s\n", artifact.ID, outcome.Reference)
	default:
		return outcome.Err
	}
	return nil
}

func parseArtifactIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid recording id %q", arg)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("recording id is required")
	}
	return ids, nil
}
