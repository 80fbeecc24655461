package ranking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ehonhub/pkg/models"
)

// BuildRecord is one row of the build history.
type BuildRecord struct {
	BuildID     string    `json:"build_id"`
	Mode        string    `json:"mode"`
	GeneratedAt time.Time `json:"generated_at"`
	Books       int       `json:"books"`
}

// SQLStore keeps the snapshot in a single row of ranking_snapshots and
// appends every write to ranking_builds.
type SQLStore struct {
	DB *sqlx.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: sqlx.NewDb(db, "sqlite3")}
}

type snapshotRow struct {
	BuildID     string `db:"build_id"`
	Mode        string `db:"mode"`
	GeneratedAt string `db:"generated_at"`
	Payload     string `db:"payload"`
}

type buildRow struct {
	BuildID     string `db:"build_id"`
	Mode        string `db:"mode"`
	GeneratedAt string `db:"generated_at"`
	Books       int    `db:"books"`
}

func (s *SQLStore) Read(ctx context.Context) (models.Snapshot, error) {
	var row snapshotRow
	err := s.DB.GetContext(ctx, &row, `
		SELECT build_id, mode, generated_at, payload
		FROM ranking_snapshots
		WHERE id = 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Snapshot{}, nil
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}

	snap := models.Snapshot{BuildID: row.BuildID, Mode: row.Mode}
	if snap.GeneratedAt, err = time.Parse(time.RFC3339Nano, row.GeneratedAt); err != nil {
		return models.Snapshot{}, fmt.Errorf("parse generated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Payload), &snap.Ranking); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode payload: %w", err)
	}
	return snap, nil
}

func (s *SQLStore) Write(ctx context.Context, snap models.Snapshot) error {
	ranking := snap.Ranking
	if ranking == nil {
		ranking = []models.BookAggregate{}
	}
	payload, err := json.Marshal(ranking)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	at := snap.GeneratedAt.UTC().Format(time.RFC3339Nano)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ranking_snapshots (id, build_id, mode, generated_at, payload)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  build_id = excluded.build_id,
		  mode = excluded.mode,
		  generated_at = excluded.generated_at,
		  payload = excluded.payload
	`, snap.BuildID, snap.Mode, at, string(payload)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ranking_builds (build_id, mode, generated_at, books)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(build_id) DO NOTHING
	`, snap.BuildID, snap.Mode, at, len(snap.Ranking)); err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Builds lists the most recent builds, newest first.
func (s *SQLStore) Builds(ctx context.Context, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []buildRow
	if err := s.DB.SelectContext(ctx, &rows, `
		SELECT build_id, mode, generated_at, books
		FROM ranking_builds
		ORDER BY generated_at DESC
		LIMIT ?
	`, limit); err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}

	out := make([]BuildRecord, 0, len(rows))
	for _, r := range rows {
		at, err := time.Parse(time.RFC3339Nano, r.GeneratedAt)
		if err != nil {
			return nil, fmt.Errorf("parse generated_at: %w", err)
		}
		out = append(out, BuildRecord{BuildID: r.BuildID, Mode: r.Mode, GeneratedAt: at, Books: r.Books})
	}
	return out, nil
}
