package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vanguard/internal/testsupport"
)

func TestRecordSavesToGalleryAndExports(t *testing.T) {
	env := setupCLITestEnv(t)
	payload := testsupport.WriteFile(t, env.cfg.Camera.Device, 200*1024)

	out, _, err := runCLI(t, []string{"record", "--duration", "5s", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("record: %v\n%s", err, out)
	}
	var ev evidenceJSON
	if err := json.Unmarshal([]byte(out), &ev); err != nil {
		t.Fatalf("decode evidence: %v\n%s", err, out)
	}
	if !ev.Saved || ev.ID == 0 || ev.SizeBytes != 200*1024 {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if ev.Share != "downloaded" || filepath.Dir(ev.Reference) != env.cfg.Paths.DownloadDir {
		t.Fatalf("expected a download into %s, got %+v", env.cfg.Paths.DownloadDir, ev)
	}

	out, _, err = runCLI(t, []string{"gallery", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("gallery list: %v", err)
	}
	var items []artifactJSON
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode gallery: %v\n%s", err, out)
	}
	if len(items) != 1 || items[0].ID != ev.ID || items[0].FileName != fmt.Sprintf("sos-evidence-%d.webm", ev.ID) {
		t.Fatalf("unexpected gallery %+v", items)
	}

	exportDir := filepath.Join(t.TempDir(), "export")
	out, _, err = runCLI(t, []string{"gallery", "export", fmt.Sprint(ev.ID), "--dir", exportDir}, env.configPath)
	if err != nil {
		t.Fatalf("gallery export: %v", err)
	}
	requireContains(t, out, exportDir)
	exported, err := os.ReadFile(filepath.Join(exportDir, fmt.Sprintf("sos-evidence-%d.webm", ev.ID)))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Equal(exported, payload) {
		t.Fatalf("exported %d bytes that differ from the %d captured", len(exported), len(payload))
	}

	out, _, err = runCLI(t, []string{"gallery", "delete", fmt.Sprint(ev.ID)}, env.configPath)
	if err != nil {
		t.Fatalf("gallery delete: %v", err)
	}
	requireContains(t, out, "Deleted")
	if _, _, err := runCLI(t, []string{"gallery", "delete", fmt.Sprint(ev.ID)}, env.configPath); err != nil {
		t.Fatalf("deleting a missing id should succeed: %v", err)
	}

	out, _, err = runCLI(t, []string{"gallery", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("gallery list: %v", err)
	}
	requireContains(t, out, "Gallery is empty")
}

func TestGalleryShareFallsBackToDownload(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	older := testsupport.SaveArtifact(t, store, []byte("first"))
	newer := testsupport.SaveArtifact(t, store, []byte("second"))
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"gallery", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("gallery list: %v", err)
	}
	if strings.Index(out, fmt.Sprint(newer)) > strings.Index(out, fmt.Sprint(older)) {
		t.Fatalf("expected newest first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"gallery", "share", fmt.Sprintf("#%d", older)}, env.configPath)
	if err != nil {
		t.Fatalf("gallery share: %v", err)
	}
	target := filepath.Join(env.cfg.Paths.DownloadDir, fmt.Sprintf("sos-evidence-%d.webm", older))
	requireContains(t, out, fmt.Sprintf("Saved #%d to %s", older, target))
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "first" {
		t.Fatalf("downloaded copy: %q, %v", data, err)
	}
}

func TestRecordWithoutCameraFails(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCameraDevice(filepath.Join(t.TempDir(), "missing", "video0")))
	if _, _, err := runCLI(t, []string{"record", "--duration", "1s"}, env.configPath); err == nil {
		t.Fatal("record should fail when the camera device is missing")
	}
}

func TestGalleryRejectsBadIDs(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"gallery", "share", "abc"}, env.configPath); err == nil {
		t.Fatal("expected invalid id error")
	}
	if _, _, err := runCLI(t, []string{"gallery", "export", "12345"}, env.configPath); err == nil {
		t.Fatal("expected not found error")
	}
}
