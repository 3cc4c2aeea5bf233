package sharing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"

	"vanguard/internal/evidence"
	"vanguard/internal/faults"
	"vanguard/internal/logging"
	"vanguard/internal/notifications"
)

// ErrCancelled is returned by a Surface when the user dismissed the share sheet.
var ErrCancelled = errors.New("share cancelled by user")

// Share sheet metadata.
const (
	ShareTitle = "SOS Recording"
	textLayout = "Jan 2, 2006, 3:04:05 PM"
)

// File is the payload handed to a share surface or downloader.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Title       string
	Text        string
}

// Surface is a native share sheet.
type Surface interface {
	CanShare(file File) bool
	Share(ctx context.Context, file File) error
}

// Downloader saves a file where the user can find it and returns its location.
type Downloader interface {
	Download(ctx context.Context, file File) (string, error)
}

// Result names how an offer ended.
type Result string

const (
	ResultShared     Result = "shared"
	ResultCancelled  Result = "cancelled"
	ResultDownloaded Result = "downloaded"
	ResultFailed     Result = "failed"
)

// Outcome describes an offer.
type Outcome struct {
	Result Result
	// Reference is the downloaded file path for ResultDownloaded.
	Reference string
	// ShareErr is the native share failure that caused a download, if any.
	ShareErr error
	// Err is the download failure for ResultFailed.
	Err error
}

// Pipeline offers artifacts through a surface with download fallback.
type Pipeline struct {
	surface    Surface
	downloader Downloader
	notifier   notifications.Service
	logger     *slog.Logger
}

// NewPipeline wires a pipeline. A nil surface means native sharing is unavailable.
func NewPipeline(surface Surface, downloader Downloader, notifier notifications.Service, logger *slog.Logger) *Pipeline {
	if notifier == nil {
		notifier = notifications.NewNoop()
	}
	return &Pipeline{
		surface:    surface,
		downloader: downloader,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "sharing"),
	}
}

// FileFor builds the share payload for artifact.
func FileFor(artifact evidence.Artifact, name string) File {
	contentType := artifact.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	captured := artifact.CapturedAt
	if captured.IsZero() {
		captured = time.UnixMilli(artifact.ID)
	}
	return File{
		Name:        name,
		ContentType: contentType,
		Data:        artifact.Payload,
		Title:       ShareTitle,
		Text:        "Evidence recorded on " + captured.Local().Format(textLayout),
	}
}

// Offer shares artifact or, failing that, downloads it. An artifact with a
// non-zero ID is assumed to be in the gallery.
func (p *Pipeline) Offer(ctx context.Context, artifact evidence.Artifact, suggestedName string) Outcome {
	logger := logging.WithContext(ctx, p.logger)
	if strings.TrimSpace(suggestedName) == "" {
		suggestedName = SuggestedName(artifact.ID, artifact.ContentType)
	}
	file := FileFor(artifact, suggestedName)

	var shareErr error
	if p.surface != nil && p.surface.CanShare(file) {
		err := p.surface.Share(ctx, file)
		switch {
		case err == nil:
			logger.Info("evidence shared", logging.String("file", file.Name))
			p.publish(ctx, logger, notifications.EventEvidenceShared, notifications.Payload{"name": file.Name})
			return Outcome{Result: ResultShared}
		case errors.Is(err, ErrCancelled):
			logger.Info("share cancelled", logging.String("file", file.Name))
			return Outcome{Result: ResultCancelled}
		default:
			shareErr = err
			logging.WarnWithContext(logger, "native share failed", "share_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check sharing.command"),
				logging.String(logging.FieldImpact, "saving a copy to the downloads directory instead"),
			)
			p.publish(ctx, logger, notifications.EventShareFailed, notifications.Payload{"error": err.Error()})
		}
	} else {
		logger.Debug("native share unavailable", logging.String("file", file.Name))
	}

	if p.downloader == nil {
		err := faults.Wrap(faults.ErrDelivery, "sharing", "download", "no download directory configured", nil)
		return p.downloadFailed(ctx, logger, shareErr, err)
	}
	path, err := p.downloader.Download(ctx, file)
	if err != nil {
		return p.downloadFailed(ctx, logger, shareErr, faults.Wrap(faults.ErrDelivery, "sharing", "download", file.Name, err))
	}

	logger.Info("evidence downloaded", logging.String("path", path))
	p.publish(ctx, logger, notifications.EventEvidenceDownloaded, notifications.Payload{"path": path, "kept": artifact.ID != 0})
	return Outcome{Result: ResultDownloaded, Reference: path, ShareErr: shareErr}
}

func (p *Pipeline) downloadFailed(ctx context.Context, logger *slog.Logger, shareErr, err error) Outcome {
	logging.ErrorWithContext(logger, "evidence download failed", "download_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.download_dir"),
		logging.String(logging.FieldImpact, "no copy was saved outside the gallery"),
	)
	p.publish(ctx, logger, notifications.EventDownloadFailed, notifications.Payload{"error": err.Error()})
	return Outcome{Result: ResultFailed, ShareErr: shareErr, Err: err}
}

func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("notice not delivered", logging.String("event", string(event)), logging.Error(err))
	}
}

// SuggestedName returns sos-evidence-<id><ext> with an extension matching contentType.
func SuggestedName(id int64, contentType string) string {
	return fmt.Sprintf("sos-evidence-%d%s", id, extensionFor(contentType))
}

func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	switch mediaType {
	case "video/webm", "":
		return ".webm"
	case "video/mp4":
		return ".mp4"
	case "video/x-matroska":
		return ".mkv"
	}
	if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
