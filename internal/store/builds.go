package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/procfg/internal/ir"
)

// ErrNotFound is returned when a build or alias does not exist.
var ErrNotFound = errors.New("not found")

// Build is one stored compilation result.
type Build struct {
	ID          string
	Seq         int64
	ProcessName string
	Source      string
	ProcessHash string
	Snapshot    *ir.ProcessSnapshot
}

// WriteBuild stores a finalized snapshot under id and returns the assigned
// seq. Writing the same id twice is a no-op that returns the original seq.
func (s *Store) WriteBuild(ctx context.Context, id, source string, snap *ir.ProcessSnapshot) (int64, error) {
	if snap.Hash == "" {
		return 0, fmt.Errorf("write build: snapshot has no hash")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("write build: marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO builds
		(id, seq, process_name, source, process_hash, snapshot, ir_version, builder_version)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM builds
		WHERE 1
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		snap.Name,
		source,
		snap.Hash,
		string(data),
		snap.IRVersion,
		snap.BuilderVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("write build: %w", err)
	}

	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT seq FROM builds WHERE id = ?`, id).Scan(&seq); err != nil {
		return 0, fmt.Errorf("write build: read seq: %w", err)
	}
	return seq, nil
}

// ReadBuild returns the build with the given id.
func (s *Store) ReadBuild(ctx context.Context, id string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, process_name, source, process_hash, snapshot
		FROM builds
		WHERE id = ?
	`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return b, err
}

// LatestBuild returns the most recent build of the named process.
func (s *Store) LatestBuild(ctx context.Context, processName string) (Build, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, process_name, source, process_hash, snapshot
		FROM builds
		WHERE process_name = ?
		ORDER BY seq DESC
		LIMIT 1
	`, processName)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Build{}, fmt.Errorf("process %s: %w", processName, ErrNotFound)
	}
	return b, err
}

// ListBuilds returns builds in insertion order, optionally filtered by
// process name. Snapshots are not decoded; Snapshot is nil.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ListBuilds(ctx context.Context, processName string) ([]Build, error) {
	query := `
		SELECT id, seq, process_name, source, process_hash
		FROM builds`
	var args []any
	if processName != "" {
		query += ` WHERE process_name = ?`
		args = append(args, processName)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	builds := []Build{}
	for rows.Next() {
		var b Build
		if err := rows.Scan(&b.ID, &b.Seq, &b.ProcessName, &b.Source, &b.ProcessHash); err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate builds: %w", err)
	}
	return builds, nil
}

// BuildsByHash returns the ids of every build with the given content hash.
func (s *Store) BuildsByHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM builds
		WHERE process_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query builds by hash: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan build id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanBuild(row *sql.Row) (Build, error) {
	var b Build
	var data string
	if err := row.Scan(&b.ID, &b.Seq, &b.ProcessName, &b.Source, &b.ProcessHash, &data); err != nil {
		return Build{}, err
	}
	var snap ir.ProcessSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return Build{}, fmt.Errorf("decode snapshot %s: %w", b.ID, err)
	}
	b.Snapshot = &snap
	return b, nil
}
