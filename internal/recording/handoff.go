package recording

import (
	"context"
	"log/slog"
	"time"

	"vanguard/internal/evidence"
	"vanguard/internal/faults"
	"vanguard/internal/logging"
	"vanguard/internal/notifications"
	"vanguard/internal/sharing"
)

// Saver persists a recording payload and returns its gallery id.
type Saver interface {
	Save(ctx context.Context, payload []byte, capturedAt time.Time) (int64, error)
}

// Offerer hands an artifact to the user.
type Offerer interface {
	Offer(ctx context.Context, artifact evidence.Artifact, suggestedName string) sharing.Outcome
}

// Delivery reports what happened to a finished recording.
type Delivery struct {
	Artifact evidence.Artifact
	Saved    bool
	SaveErr  error
	Share    sharing.Outcome
}

// Handoff saves finished recordings and then offers them for sharing. A
// failed save is reported and the recording is still offered, so the user
// keeps a copy either way.
type Handoff struct {
	Store    Saver
	Sharer   Offerer
	Notifier notifications.Service
	Logger   *slog.Logger
}

// Complete implements Completion.
func (h *Handoff) Complete(ctx context.Context, rec *Recording) {
	h.Deliver(ctx, rec)
}

// Deliver saves rec and offers it. Empty recordings are dropped.
func (h *Handoff) Deliver(ctx context.Context, rec *Recording) Delivery {
	logger := logging.WithContext(ctx, logging.NewComponentLogger(h.Logger, "handoff"))
	if rec == nil || len(rec.Payload) == 0 {
		logger.Info("recording empty; nothing to save")
		return Delivery{}
	}
	capturedAt := rec.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = rec.StoppedAt
	}

	artifact := evidence.Artifact{
		Payload:     rec.Payload,
		CapturedAt:  capturedAt,
		SizeBytes:   int64(len(rec.Payload)),
		ContentType: rec.ContentType,
	}
	delivery := Delivery{}

	if h.Store == nil {
		delivery.SaveErr = faults.Wrap(faults.ErrPersistence, "handoff", "save", "no evidence store", nil)
	} else {
		id, err := h.Store.Save(ctx, rec.Payload, capturedAt)
		if err != nil {
			delivery.SaveErr = err
		} else {
			artifact.ID = id
			delivery.Saved = true
		}
	}

	if delivery.SaveErr != nil {
		logging.ErrorWithContext(logger, "evidence save failed", "persistence_failed",
			logging.Error(delivery.SaveErr),
			logging.String(logging.FieldErrorHint, faults.Hint(faults.ErrPersistence)),
			logging.String(logging.FieldImpact, "recording is offered for sharing but not kept in the gallery"),
		)
		h.publish(ctx, logger, notifications.EventPersistenceFailed, notifications.Payload{"error": delivery.SaveErr.Error()})
	} else {
		logger.Info("evidence saved",
			logging.Int64(logging.FieldArtifactID, artifact.ID),
			logging.Int64("size_bytes", artifact.SizeBytes),
		)
		h.publish(ctx, logger, notifications.EventEvidenceSaved, notifications.Payload{"id": artifact.ID, "size_bytes": artifact.SizeBytes})
	}
	delivery.Artifact = artifact

	if h.Sharer != nil {
		nameID := artifact.ID
		if nameID == 0 {
			nameID = capturedAt.UnixMilli()
		}
		delivery.Share = h.Sharer.Offer(ctx, artifact, sharing.SuggestedName(nameID, artifact.ContentType))
	}
	return delivery
}

func (h *Handoff) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if h.Notifier == nil {
		return
	}
	if err := h.Notifier.Publish(ctx, event, payload); err != nil {
		logger.Debug("notice not delivered", logging.String("event", string(event)), logging.Error(err))
	}
}
