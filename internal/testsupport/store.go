package testsupport

import (
	"context"
	"testing"
	"time"

	"vanguard/internal/config"
	"vanguard/internal/evidence"
)

// MustOpenStore opens the evidence store for cfg and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *evidence.Store {
	t.Helper()

	store, err := evidence.Open(context.Background(), cfg.EvidenceDBPath(), evidence.Options{ContentType: cfg.Camera.ContentType})
	if err != nil {
		t.Fatalf("evidence.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SaveArtifact stores payload and returns its id.
func SaveArtifact(t testing.TB, store *evidence.Store, payload []byte) int64 {
	t.Helper()

	id, err := store.Save(context.Background(), payload, time.Now())
	if err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return id
}
