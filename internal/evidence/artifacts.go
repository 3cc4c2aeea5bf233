package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vanguard/internal/faults"
)

// maxIDBumps bounds how far Save walks forward past identifiers that are
// already taken before giving up.
const maxIDBumps = 1000

// Save stores payload as a new artifact and returns its identifier. The
// identifier is the save time in Unix milliseconds, bumped forward when that
// value is not greater than every identifier already issued.
func (s *Store) Save(ctx context.Context, payload []byte, capturedAt time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return 0, err
	}
	if capturedAt.IsZero() {
		capturedAt = s.clock()
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.clock().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for bump := 0; bump < maxIDBumps; bump++ {
		err := s.insert(ctx, db, Artifact{
			ID:          id,
			Payload:     payload,
			CapturedAt:  capturedAt,
			SizeBytes:   int64(len(payload)),
			ContentType: s.contentType,
		})
		if err == nil {
			s.lastID = id
			return id, nil
		}
		if !isConstraintViolation(err) {
			return 0, faults.Wrap(faults.ErrPersistence, "evidence", "save", "insert artifact", err)
		}
		id++
	}
	return 0, faults.Wrap(faults.ErrPersistence, "evidence", "save", fmt.Sprintf("no free identifier after %d attempts", maxIDBumps), nil)
}

func (s *Store) insert(ctx context.Context, db *sql.DB, artifact Artifact) error {
	payload := artifact.Payload
	if payload == nil {
		payload = []byte{}
	}
	return retryOnBusy(ctx, func() error {
		_, err := db.ExecContext(ctx,
			`INSERT INTO artifacts (id, payload, captured_at, size_bytes, content_type, saved_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			artifact.ID,
			payload,
			artifact.CapturedAt.UTC().Format(time.RFC3339Nano),
			artifact.SizeBytes,
			nullableString(artifact.ContentType),
			s.clock().UTC().Format(time.RFC3339Nano),
		)
		return err
	})
}

// GetAll returns every artifact, newest first.
func (s *Store) GetAll(ctx context.Context) ([]Artifact, error) {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, payload, captured_at, size_bytes, content_type, saved_at
         FROM artifacts ORDER BY id DESC`)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "get all", "query artifacts", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, faults.Wrap(faults.ErrPersistence, "evidence", "get all", "scan artifact", err)
		}
		artifacts = append(artifacts, *artifact)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "get all", "iterate artifacts", err)
	}
	return artifacts, nil
}

// List returns artifact metadata, newest first, without loading payloads.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, captured_at, size_bytes, content_type FROM artifacts ORDER BY id DESC`)
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "list", "query artifacts", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var (
			summary     Summary
			capturedAt  string
			contentType sql.NullString
		)
		if err := rows.Scan(&summary.ID, &capturedAt, &summary.SizeBytes, &contentType); err != nil {
			return nil, faults.Wrap(faults.ErrPersistence, "evidence", "list", "scan artifact", err)
		}
		summary.CapturedAt = parseTime(capturedAt)
		summary.ContentType = contentType.String
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "list", "iterate artifacts", err)
	}
	return summaries, nil
}

// Get fetches one artifact. A missing identifier yields nil without error.
func (s *Store) Get(ctx context.Context, id int64) (*Artifact, error) {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx,
		`SELECT id, payload, captured_at, size_bytes, content_type, saved_at
         FROM artifacts WHERE id = ?`, id)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, faults.Wrap(faults.ErrPersistence, "evidence", "get", fmt.Sprintf("artifact %d", id), err)
	}
	return artifact, nil
}

// Delete removes an artifact. Deleting an identifier that does not exist is a
// successful no-op.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if err := retryOnBusy(ctx, func() error {
		_, execErr := db.ExecContext(ctx, "DELETE FROM artifacts WHERE id = ?", id)
		return execErr
	}); err != nil {
		return faults.Wrap(faults.ErrPersistence, "evidence", "delete", fmt.Sprintf("artifact %d", id), err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(row scanner) (*Artifact, error) {
	var (
		artifact    Artifact
		capturedAt  string
		savedAt     string
		contentType sql.NullString
	)
	if err := row.Scan(&artifact.ID, &artifact.Payload, &capturedAt, &artifact.SizeBytes, &contentType, &savedAt); err != nil {
		return nil, err
	}
	artifact.CapturedAt = parseTime(capturedAt)
	artifact.SavedAt = parseTime(savedAt)
	artifact.ContentType = contentType.String
	return &artifact, nil
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
