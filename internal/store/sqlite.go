package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// SQLiteRepository implements Repository on a local sqlite file
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time interface check
var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens (and creates if needed) the history database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One CLI process, one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	r := &SQLiteRepository{db: db, now: time.Now}
	if err := r.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return r, nil
}

func (r *SQLiteRepository) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, string(b))
	return err
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Create stores a new record. An ID is generated when rec.ID is empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec Record) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := r.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications(id, message, title, priority, devices, request_id, receipt, state, error, polls,
		 acknowledged_at, acknowledged_by_device, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.Message, nullStr(rec.Title), rec.Priority, nullStr(rec.Devices), nullStr(rec.RequestID),
		nullStr(rec.Receipt), rec.State, nullStr(rec.Error), rec.Polls,
		nullTime(rec.AcknowledgedAt), nullStr(rec.AcknowledgedByDevice),
		rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	return rec.ID, nil
}

// Update overwrites the outcome fields of an existing record.
func (r *SQLiteRepository) Update(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return errors.New("record ID is required")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications
		 SET request_id = ?, receipt = ?, state = ?, error = ?, polls = ?,
		     acknowledged_at = ?, acknowledged_by_device = ?, updated_at = ?
		 WHERE id = ?`,
		nullStr(rec.RequestID), nullStr(rec.Receipt), rec.State, nullStr(rec.Error), rec.Polls,
		nullTime(rec.AcknowledgedAt), nullStr(rec.AcknowledgedByDevice), r.now().UnixNano(),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `id, message, title, priority, devices, request_id, receipt, state, error, polls,
	acknowledged_at, acknowledged_by_device, created_at, updated_at`

// Get retrieves a record by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("record ID is required")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM notifications WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. A non-positive limit
// defaults to 20.
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM notifications ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*Record, error) {
	var (
		rec                                              Record
		title, devices, requestID, receipt, errText, dev sql.NullString
		ackAt                                            sql.NullInt64
		createdAt, updatedAt                             int64
	)
	if err := s.Scan(&rec.ID, &rec.Message, &title, &rec.Priority, &devices, &requestID, &receipt,
		&rec.State, &errText, &rec.Polls, &ackAt, &dev, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Title = title.String
	rec.Devices = devices.String
	rec.RequestID = requestID.String
	rec.Receipt = receipt.String
	rec.Error = errText.String
	rec.AcknowledgedByDevice = dev.String
	if ackAt.Valid {
		rec.AcknowledgedAt = time.Unix(ackAt.Int64, 0)
	}
	rec.CreatedAt = time.Unix(0, createdAt)
	rec.UpdatedAt = time.Unix(0, updatedAt)
	return &rec, nil
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}
