package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/todoterm/internal/app"
	"github.com/evanschultz/todoterm/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// List names stored in the tasks table.
const (
	listIncomplete = "incomplete"
	listComplete   = "complete"
)

// Repository stores task list snapshots in SQLite. Each save writes a new
// snapshot generation and prunes the older ones in the same transaction.
type Repository struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator overrides snapshot id generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// WithClock overrides the save timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(r *Repository) {
		if fn != nil {
			r.now = fn
		}
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return newRepository(db, opts)
}

// OpenInMemory opens a private in-memory database. Data lives until Close.
func OpenInMemory(opts ...Option) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	// A single pooled connection keeps the database alive between statements.
	db.SetMaxOpenConns(1)
	return newRepository(db, opts)
}

// newRepository applies options and migrates the schema.
func newRepository(db *sql.DB, opts []Option) (*Repository, error) {
	repo := &Repository{
		db:    db,
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// migrate creates the schema when missing.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			snapshot_id TEXT NOT NULL,
			list TEXT NOT NULL CHECK (list IN ('incomplete', 'complete')),
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY(snapshot_id, list, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// Save writes snap as the newest generation.
func (r *Repository) Save(ctx context.Context, snap domain.Snapshot) (err error) {
	id := r.newID()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `INSERT INTO snapshots(id, saved_at) VALUES (?, ?)`, id, ts(r.now())); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err = insertTasks(ctx, tx, id, listIncomplete, snap.IncompleteTasks); err != nil {
		return err
	}
	if err = insertTasks(ctx, tx, id, listComplete, snap.CompleteTasks); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM tasks WHERE snapshot_id <> ?`, id); err != nil {
		return fmt.Errorf("prune tasks: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id <> ?`, id); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	err = tx.Commit()
	return err
}

// Load reads the newest generation. It returns app.ErrNotFound before the first save.
func (r *Repository) Load(ctx context.Context) (domain.Snapshot, error) {
	var id string
	row := r.db.QueryRowContext(ctx, `SELECT id FROM snapshots ORDER BY saved_at DESC, rowid DESC LIMIT 1`)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Snapshot{}, app.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT list, text
		FROM tasks
		WHERE snapshot_id = ?
		ORDER BY list, position
	`, id)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read tasks: %w", err)
	}
	defer rows.Close()

	snap := domain.Snapshot{CompleteTasks: []string{}, IncompleteTasks: []string{}}
	for rows.Next() {
		var list, text string
		if err := rows.Scan(&list, &text); err != nil {
			return domain.Snapshot{}, err
		}
		switch list {
		case listIncomplete:
			snap.IncompleteTasks = append(snap.IncompleteTasks, text)
		case listComplete:
			snap.CompleteTasks = append(snap.CompleteTasks, text)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// SavedAt returns the timestamp of the newest generation.
func (r *Repository) SavedAt(ctx context.Context) (time.Time, error) {
	var raw string
	row := r.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshots ORDER BY saved_at DESC, rowid DESC LIMIT 1`)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, app.ErrNotFound
		}
		return time.Time{}, err
	}
	return parseTS(raw), nil
}

// insertTasks writes one ordered list for a snapshot.
func insertTasks(ctx context.Context, tx *sql.Tx, snapshotID, list string, tasks []string) error {
	for pos, text := range tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks(snapshot_id, list, position, text) VALUES (?, ?, ?, ?)`,
			snapshotID, list, pos, text,
		); err != nil {
			return fmt.Errorf("insert %s task %d: %w", list, pos, err)
		}
	}
	return nil
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses a stored timestamp.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
