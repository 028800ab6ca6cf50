package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// erDupEntry is MySQL's duplicate key error number.
const erDupEntry = 1062

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

var fieldName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// MySQL stores every collection in the documents table (see database.EnsureSchema),
// one JSON column per document. The DSN must set clientFoundRows=true so that
// Update can tell a missing row from an unchanged one.
type MySQL struct {
	db  *sql.DB
	now func() time.Time
}

func NewMySQL(db *sql.DB) *MySQL {
	return &MySQL{db: db, now: time.Now}
}

func (s *MySQL) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return Document{}, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return Document{ID: id, Data: data}, nil
}

func (s *MySQL) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	stmt, args, err := compileQuery(collection, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		data, err := decodeData(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		out = append(out, Document{ID: id, Data: data})
	}
	return out, rows.Err()
}

func (s *MySQL) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MySQL) Set(ctx context.Context, collection, id string, data map[string]any) error {
	now := s.now().UTC()
	raw, err := encodeData(data, now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)`,
		collection, id, raw, now, now)
	return err
}

// Create relies on the (collection, id) primary key to reject a second insert.
func (s *MySQL) Create(ctx context.Context, collection, id string, data map[string]any) error {
	now := s.now().UTC()
	raw, err := encodeData(data, now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		collection, id, raw, now, now)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == erDupEntry {
		return ErrAlreadyExists
	}
	return err
}

func (s *MySQL) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	now := s.now().UTC()
	raw, err := encodeData(fields, now)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET data = JSON_MERGE_PATCH(data, ?), updated_at = ? WHERE collection = ? AND id = ?`,
		raw, now, collection, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MySQL) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	return err
}

func (s *MySQL) Close() error { return s.db.Close() }

func jsonPath(field string) (string, error) {
	if !fieldName.MatchString(field) {
		return "", fmt.Errorf("%w: field %q", ErrInvalidQuery, field)
	}
	return "JSON_EXTRACT(data, '$." + field + "')", nil
}

func compileQuery(collection string, q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, data FROM documents WHERE collection = ?`)
	args := []any{collection}

	for _, f := range q.Filters {
		path, err := jsonPath(f.Field)
		if err != nil {
			return "", nil, err
		}
		val, err := json.Marshal(encodeValue(f.Value, time.Time{}))
		if err != nil {
			return "", nil, fmt.Errorf("%w: value for %q: %v", ErrInvalidQuery, f.Field, err)
		}
		switch f.Op {
		case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
			op := string(f.Op)
			if f.Op == OpEq {
				op = "="
			} else if f.Op == OpNe {
				op = "<>"
			}
			fmt.Fprintf(&b, " AND %s %s CAST(? AS JSON)", path, op)
		case OpIn:
			fmt.Fprintf(&b, " AND JSON_CONTAINS(CAST(? AS JSON), %s)", path)
		case OpArrayContains:
			fmt.Fprintf(&b, " AND JSON_CONTAINS(%s, CAST(? AS JSON))", path)
		case OpArrayContainsAny:
			fmt.Fprintf(&b, " AND JSON_OVERLAPS(%s, CAST(? AS JSON))", path)
		default:
			return "", nil, fmt.Errorf("%w: operator %q", ErrInvalidQuery, f.Op)
		}
		args = append(args, string(val))
	}

	b.WriteString(" ORDER BY ")
	for _, o := range q.OrderBy {
		path, err := jsonPath(o.Field)
		if err != nil {
			return "", nil, err
		}
		dir := "ASC"
		if o.Dir == Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&b, "%s %s, ", path, dir)
	}
	b.WriteString("id ASC")

	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

func encodeData(data map[string]any, now time.Time) ([]byte, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = encodeValue(v, now)
	}
	return json.Marshal(out)
}

// encodeValue rewrites timestamps into timeLayout strings.
func encodeValue(v any, now time.Time) any {
	switch x := v.(type) {
	case serverTimestamp:
		return now.UTC().Format(timeLayout)
	case time.Time:
		return x.UTC().Format(timeLayout)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeValue(e, now)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeValue(e, now)
		}
		return out
	}
	return v
}

func decodeData(raw []byte) (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for k, v := range data {
		data[k] = decodeValue(v)
	}
	return data, nil
}

// decodeValue turns strings written by encodeValue back into time.Time.
func decodeValue(v any) any {
	switch x := v.(type) {
	case string:
		if len(x) == len(timeLayout) && strings.HasSuffix(x, "Z") {
			if t, err := time.Parse(timeLayout, x); err == nil {
				return t
			}
		}
	case map[string]any:
		for k, e := range x {
			x[k] = decodeValue(e)
		}
	case []any:
		for i, e := range x {
			x[i] = decodeValue(e)
		}
	}
	return v
}
