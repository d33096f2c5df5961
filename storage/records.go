package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/trackiq/features"
)

// Record is one stored feature vector.
type Record struct {
	ID        int64           `json:"id"`
	Filename  string          `json:"filename"`
	Features  features.Vector `json:"features"`
	CreatedAt time.Time       `json:"created_at"`
}

var (
	featureColumns = strings.Join(features.Names(), ", ")
	selectColumns  = "id, filename, " + featureColumns + ", created_at"
	insertSQL      = fmt.Sprintf(
		"INSERT INTO audio_features (filename, %s, created_at) VALUES (?%s, ?)",
		featureColumns, strings.Repeat(", ?", len(features.Names())),
	)
)

// Insert stores vec under filename. An existing filename yields a
// *DuplicateKeyError and leaves the first record unchanged.
func (s *Store) Insert(ctx context.Context, filename string, vec features.Vector) (*Record, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("insert record: empty filename")
	}
	now := time.Now().UTC()

	values := vec.Values()
	args := make([]any, 0, len(values)+2)
	args = append(args, filename)
	for _, v := range values {
		args = append(args, v)
	}
	args = append(args, now.Format(time.RFC3339Nano))

	res, err := s.execWithRetry(ctx, insertSQL, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &DuplicateKeyError{Filename: filename, Err: err}
		}
		return nil, fmt.Errorf("insert record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Record{ID: id, Filename: filename, Features: vec, CreatedAt: now}, nil
}

// GetByID fetches a record by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+selectColumns+" FROM audio_features WHERE id = ?", id)
	return scanRecord(row)
}

// GetByFilename fetches the record stored for an upload name.
func (s *Store) GetByFilename(ctx context.Context, filename string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+selectColumns+" FROM audio_features WHERE filename = ?", filename)
	return scanRecord(row)
}

// List returns every record in insertion order.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+selectColumns+" FROM audio_features ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Delete removes a record; a missing id yields ErrNotFound.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM audio_features WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (*Record, error) {
	var (
		rec     Record
		created string
	)
	values := make([]float64, len(features.Names()))
	dest := make([]any, 0, len(values)+3)
	dest = append(dest, &rec.ID, &rec.Filename)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &created)

	if err := scanner.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}

	vec, ok := features.FromValues(values)
	if !ok {
		return nil, fmt.Errorf("scan record %d: unexpected feature count %d", rec.ID, len(values))
	}
	rec.Features = vec

	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for record %d: %w", rec.ID, err)
	}
	rec.CreatedAt = ts
	return &rec, nil
}
