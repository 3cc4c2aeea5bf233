package contacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSlot stores contacts as a JSON array in one file.
type FileSlot struct {
	Path string
}

// Load returns the stored contacts. A missing file is an empty list.
func (s FileSlot) Load(_ context.Context) ([]Contact, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contacts: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var contacts []Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts %s: %w", s.Path, err)
	}
	return contacts, nil
}

// Store replaces the file atomically.
func (s FileSlot) Store(_ context.Context, contacts []Contact) error {
	if contacts == nil {
		contacts = []Contact{}
	}
	data, err := json.MarshalIndent(contacts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode contacts: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create contacts directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".contacts-*.json")
	if err != nil {
		return fmt.Errorf("create temp contacts file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write contacts: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync contacts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close contacts: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		return fmt.Errorf("replace contacts: %w", err)
	}
	return nil
}
