package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/drivercatalog/internal/catalog"
)

// SQLiteFileName is the database file created inside the data directory.
const SQLiteFileName = "drivercatalog.db"

// SQLite stores every saved catalog as a snapshot row. Load returns the
// newest snapshot; older ones are kept for inspection up to a limit.
type SQLite struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// keep is the number of snapshots retained after a save.
	keep int
}

// SQLiteOptions configures the SQLite backend.
type SQLiteOptions struct {
	// Keep is the number of snapshots retained after each save. Zero or less
	// keeps only the newest one.
	Keep int

	// DisableWAL leaves SQLite in its default rollback-journal mode.
	DisableWAL bool
}

// Snapshot describes one saved catalog.
type Snapshot struct {
	ID        string
	CreatedAt time.Time
	Digest    string
	Leaves    int
	Size      int
}

// OpenSQLite opens or creates the snapshot database inside dbDir.
func OpenSQLite(dbDir string, opts SQLiteOptions) (*SQLite, error) {
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create database directory: %w", ErrStoreIO, err)
	}
	dbPath := filepath.Join(dbDir, SQLiteFileName)

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStoreIO, err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if !opts.DisableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrStoreIO, err)
		}
	}

	keep := opts.Keep
	if keep < 1 {
		keep = 1
	}
	s := &SQLite{db: db, dbPath: dbPath, keep: keep}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %w", ErrStoreIO, err)
	}
	return s, nil
}

// Path returns the database file location.
func (s *SQLite) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL,
		digest TEXT NOT NULL,
		leaves INTEGER NOT NULL,
		blob BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Load returns the newest snapshot after checking its digest.
func (s *SQLite) Load(ctx context.Context) (*catalog.Tree, error) {
	var (
		id     string
		digest string
		blob   []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, digest, blob FROM snapshots ORDER BY seq DESC LIMIT 1`,
	).Scan(&id, &digest, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.NewTree(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read snapshot: %w", ErrStoreIO, err)
	}
	if got := Digest(blob); got != digest {
		return nil, fmt.Errorf("%w: snapshot %s digest %s, stored %s", ErrCorruptSnapshot, id, got, digest)
	}
	return Decode(blob)
}

// Save inserts a new snapshot and drops the ones beyond the retention limit.
func (s *SQLite) Save(ctx context.Context, tree *catalog.Tree) error {
	blob, err := Encode(tree)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreIO, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, created_at, digest, leaves, blob) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UTC().Format(time.RFC3339Nano), Digest(blob), tree.Len(), blob,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert snapshot: %w", ErrStoreIO, err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM snapshots WHERE seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)`,
		s.keep,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to prune snapshots: %w", ErrStoreIO, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit snapshot: %w", ErrStoreIO, err)
	}
	return nil
}

// Snapshots lists the retained snapshots, newest first.
func (s *SQLite) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, digest, leaves, length(blob) FROM snapshots ORDER BY seq DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list snapshots: %w", ErrStoreIO, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			snap    Snapshot
			created string
		)
		if err := rows.Scan(&snap.ID, &created, &snap.Digest, &snap.Leaves, &snap.Size); err != nil {
			return nil, fmt.Errorf("%w: failed to scan snapshot: %w", ErrStoreIO, err)
		}
		snap.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot %s has a bad timestamp: %w", ErrCorruptSnapshot, snap.ID, err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreIO, err)
	}
	return out, nil
}
