package song

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"github.com/google/uuid"
	"github.com/tdeslauriers/cantor/internal/util"
)

// upload lifecycle states
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// Upload is a per-upload bookkeeping record. Song names are parsed once at
// the upload boundary and carried here, so downstream stages never have to
// re-derive them from intermediate file basenames.
type Upload struct {
	Id          string
	Title       string
	Names       []string // 1 name, or 2 for a medley
	StagingPath string
	Status      string
	Reason      string // failure reason, when status is failed
	CreatedAt   time.Time
}

// Registry is the interface for durable per-upload records consumed by the
// ingestion pipeline.
type Registry interface {

	// Add records a newly staged upload as pending.
	Add(ctx context.Context, title string, names []string, stagingPath string) (*Upload, error)

	// Pending returns all uploads awaiting processing, oldest first.
	Pending(ctx context.Context) ([]Upload, error)

	// SetStatus transitions an upload's status, with an optional reason for
	// failures.
	SetStatus(ctx context.Context, id, status, reason string) error

	// HasStagingPath reports whether any record references the staging path,
	// regardless of status.
	HasStagingPath(ctx context.Context, stagingPath string) (bool, error)

	// Close closes the underlying database.
	Close() error
}

// NewRegistry opens (creating if necessary) the sqlite-backed upload
// registry at dbPath, returning a pointer to the concrete implementation.
func NewRegistry(dbPath string) (Registry, error) {

	// wal mode: the pipeline reads while the upload handler writes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open upload registry database: %v", err)
	}

	if _, err := db.Exec(createUploadsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize upload registry schema: %v", err)
	}

	return &registry{
		db: db,

		logger: slog.Default().
			With(slog.String(util.ServiceKey, util.ServiceCantor)).
			With(slog.String(util.PackageKey, util.PackageSong)).
			With(slog.String(util.ComponentKey, util.ComponentRegistry)),
	}, nil
}

const createUploadsTable = `
CREATE TABLE IF NOT EXISTS uploads (
	uuid         TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	names        TEXT NOT NULL,
	staging_path TEXT NOT NULL,
	status       TEXT NOT NULL,
	reason       TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL
)`

var _ Registry = (*registry)(nil)

// registry is the concrete sqlite implementation of the Registry interface.
type registry struct {
	db *sql.DB

	logger *slog.Logger
}

// Add is the concrete implementation of the interface method which records
// a newly staged upload as pending.
func (r *registry) Add(ctx context.Context, title string, names []string, stagingPath string) (*Upload, error) {

	if len(names) == 0 {
		return nil, fmt.Errorf("upload record requires at least one song name")
	}

	u := &Upload{
		Id:          uuid.New().String(),
		Title:       title,
		Names:       names,
		StagingPath: stagingPath,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	qry := `INSERT INTO uploads (uuid, title, names, staging_path, status, reason, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, qry,
		u.Id, u.Title, strings.Join(u.Names, "_"), u.StagingPath, u.Status, u.Reason, u.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("failed to insert upload record for title '%s': %v", title, err)
	}

	return u, nil
}

// Pending is the concrete implementation of the interface method which
// returns all uploads awaiting processing, oldest first.
func (r *registry) Pending(ctx context.Context) ([]Upload, error) {

	qry := `SELECT uuid, title, names, staging_path, status, reason, created_at FROM uploads WHERE status = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, qry, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending uploads: %v", err)
	}
	defer rows.Close()

	var pending []Upload
	for rows.Next() {

		var (
			u       Upload
			names   string
			created string
		)
		if err := rows.Scan(&u.Id, &u.Title, &names, &u.StagingPath, &u.Status, &u.Reason, &created); err != nil {
			return nil, fmt.Errorf("failed to scan upload record: %v", err)
		}

		u.Names = strings.Split(names, "_")
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			u.CreatedAt = t
		}

		pending = append(pending, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending uploads: %v", err)
	}

	return pending, nil
}

// SetStatus is the concrete implementation of the interface method which
// transitions an upload's status.
func (r *registry) SetStatus(ctx context.Context, id, status, reason string) error {

	qry := `UPDATE uploads SET status = ?, reason = ? WHERE uuid = ?`
	result, err := r.db.ExecContext(ctx, qry, status, reason, id)
	if err != nil {
		return fmt.Errorf("failed to update upload '%s' to status '%s': %v", id, status, err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("upload record '%s' not found", id)
	}

	return nil
}

// HasStagingPath is the concrete implementation of the interface method
// which reports whether any record references the staging path.
func (r *registry) HasStagingPath(ctx context.Context, stagingPath string) (bool, error) {

	var count int
	qry := `SELECT COUNT(*) FROM uploads WHERE staging_path = ?`
	if err := r.db.QueryRowContext(ctx, qry, stagingPath).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query staging path '%s': %v", stagingPath, err)
	}

	return count > 0, nil
}

// Close closes the underlying database.
func (r *registry) Close() error {
	return r.db.Close()
}
