package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"docuflow/internal/document/model"
	"docuflow/pkg/logger"
)

// Dialect selects placeholder syntax for the SQL store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

type SQLRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{DB: db, Dialect: dialect}
}

func (r *SQLRepository) List(ctx context.Context) ([]model.Document, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, title, status, created_at FROM documents ORDER BY id")
	if err != nil {
		logger.Sugar.Errorf("Failed to list documents: %v", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []model.Document{}
	for rows.Next() {
		var doc model.Document
		var createdAt timestamp
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Status, &createdAt); err != nil {
			logger.Sugar.Errorf("Failed to scan document row: %v", err)
			return nil, fmt.Errorf("scan document: %w: %v", ErrCorrupt, err)
		}
		doc.CreatedAt = createdAt.ptr()
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *SQLRepository) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	status, err := statusArg(doc.Status)
	if err != nil {
		return model.Document{}, err
	}
	now := time.Now().UTC().Truncate(time.Microsecond)

	result, err := r.DB.ExecContext(ctx,
		r.rebind("INSERT INTO documents (id, title, status, created_at) VALUES (?, ?, ?, ?) ON CONFLICT (id) DO NOTHING"),
		doc.ID, doc.Title, status, now)
	if err != nil {
		logger.Sugar.Errorf("Failed to create document %d: %v", doc.ID, err)
		return model.Document{}, fmt.Errorf("create document %d: %w", doc.ID, err)
	}
	if err := affectedOne(result, ErrConflict); err != nil {
		return model.Document{}, fmt.Errorf("create document %d: %w", doc.ID, err)
	}

	doc.CreatedAt = &now
	return doc, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.DB.ExecContext(ctx, r.rebind("DELETE FROM documents WHERE id = ?"), id)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete doc %d: %v", id, err)
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	if err := affectedOne(result, ErrNotFound); err != nil {
		return fmt.Errorf("delete document %d: %w", id, err)
	}
	return nil
}

func (r *SQLRepository) UpdateStatus(ctx context.Context, id int64, status model.Status) error {
	arg, err := statusArg(status)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx, r.rebind("UPDATE documents SET status = ? WHERE id = ?"), arg, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update status for doc %d: %v", id, err)
		return fmt.Errorf("update status of document %d: %w", id, err)
	}
	if err := affectedOne(result, ErrNotFound); err != nil {
		return fmt.Errorf("update status of document %d: %w", id, err)
	}
	return nil
}

func (r *SQLRepository) Rename(ctx context.Context, id int64, title string) error {
	result, err := r.DB.ExecContext(ctx, r.rebind("UPDATE documents SET title = ? WHERE id = ?"), title, id)
	if err != nil {
		logger.Sugar.Errorf("Failed to update title for doc %d: %v", id, err)
		return fmt.Errorf("rename document %d: %w", id, err)
	}
	if err := affectedOne(result, ErrNotFound); err != nil {
		return fmt.Errorf("rename document %d: %w", id, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$n for postgres. Queries in this file
// never contain a literal question mark.
func (r *SQLRepository) rebind(query string) string {
	if r.Dialect != DialectPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(c)
	}
	return sb.String()
}

func statusArg(s model.Status) (string, error) {
	v, err := s.Value()
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// affectedOne returns none when the statement touched no row.
func affectedOne(result sql.Result, none error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

// timestamp scans created_at from either driver. SQLite may hand back text,
// postgres returns time.Time.
type timestamp struct {
	t     time.Time
	valid bool
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*ts = timestamp{}
		return nil
	case time.Time:
		*ts = timestamp{t: v.UTC(), valid: true}
		return nil
	case []byte:
		return ts.parse(string(v))
	case string:
		return ts.parse(v)
	}
	return fmt.Errorf("unsupported created_at type %T", src)
}

func (ts *timestamp) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = timestamp{t: t.UTC(), valid: true}
			return nil
		}
	}
	return fmt.Errorf("unrecognized created_at value %q", s)
}

func (ts timestamp) ptr() *time.Time {
	if !ts.valid {
		return nil
	}
	t := ts.t
	return &t
}
