package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// Payload returns size bytes of a repeating 0..250 pattern, so truncated or
// reordered copies are caught by a plain bytes.Equal.
func Payload(size int) []byte {
	out := make([]byte, max(size, 1))
	for i := range out {
		out[i] = byte(i % 251)
	}
	return out
}

// WriteFile writes Payload(size) to path, creating parent directories, and
// returns what it wrote.
func WriteFile(t testing.TB, path string, size int) []byte {
	t.Helper()
	data := Payload(size)
	writeFile(t, path, data, 0o644)
	return data
}

// WriteExecutable writes a shell script to path with the exec bit set.
func WriteExecutable(t testing.TB, path, script string) {
	t.Helper()
	writeFile(t, path, []byte(script), 0o755)
}

func writeFile(t testing.TB, path string, data []byte, mode os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
