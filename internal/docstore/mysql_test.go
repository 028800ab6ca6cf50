package docstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*MySQL, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s := NewMySQL(db)
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return s, mock
}

func TestCompileQuery(t *testing.T) {
	q := Query{}.
		Where("userId", OpEq, "u1").
		Where("genre", OpArrayContainsAny, []string{"Drama"}).
		Where("status", OpIn, []string{"confirmed", "completed"}).
		Order("createdAt", Desc).
		Take(5)
	stmt, args, err := compileQuery("bookings", q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, data FROM documents WHERE collection = ?"+
		" AND JSON_EXTRACT(data, '$.userId') = CAST(? AS JSON)"+
		" AND JSON_OVERLAPS(JSON_EXTRACT(data, '$.genre'), CAST(? AS JSON))"+
		" AND JSON_CONTAINS(CAST(? AS JSON), JSON_EXTRACT(data, '$.status'))"+
		" ORDER BY JSON_EXTRACT(data, '$.createdAt') DESC, id ASC LIMIT 5", stmt)
	assert.Equal(t, []any{"bookings", `"u1"`, `["Drama"]`, `["confirmed","completed"]`}, args)
}

func TestCompileQueryRejectsUnsafeField(t *testing.T) {
	_, _, err := compileQuery("movies", Query{}.Where("title') OR 1=1 --", OpEq, "x"))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestMySQLGet(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents WHERE collection = ? AND id = ?`)).
		WithArgs("movies", "m1").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).
			AddRow([]byte(`{"title":"Dune","createdAt":"2025-01-02T03:04:05.000000Z","genre":["Sci-Fi"]}`)))

	doc, err := s.Get(context.Background(), "movies", "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", doc.ID)
	assert.Equal(t, "Dune", doc.Data["title"])
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), doc.Data["createdAt"])
	assert.Equal(t, []any{"Sci-Fi"}, doc.Data["genre"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT data FROM documents`)).
		WithArgs("movies", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, err := s.Get(context.Background(), "movies", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMySQLQuery(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, data FROM documents WHERE collection = ? ORDER BY id ASC`)).
		WithArgs("users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).
			AddRow("u1", []byte(`{"name":"Ann","admin":true}`)).
			AddRow("u2", []byte(`{"name":"Bob"}`)))

	docs, err := s.Query(context.Background(), "users", Query{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, true, docs[0].Data["admin"])
	assert.Equal(t, "Bob", docs[1].Data["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSetEncodesTimestamps(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO documents (collection, id, data, created_at, updated_at)`)).
		WithArgs("bookings", "b1", []byte(`{"createdAt":"2025-03-04T05:06:07.000000Z","date":"2025-07-01T00:00:00.000000Z"}`),
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Set(context.Background(), "bookings", "b1", map[string]any{
		"createdAt": ServerTimestamp,
		"date":      time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUpdateMissing(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET data = JSON_MERGE_PATCH(data, ?)`)).
		WithArgs([]byte(`{"title":"x"}`), sqlmock.AnyArg(), "movies", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), "movies", "ghost", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLDelete(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE collection = ? AND id = ?`)).
		WithArgs("movies", "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "movies", "m1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLCreateMapsDuplicateKey(t *testing.T) {
	s, mock := newMockStore(t)
	insert := regexp.QuoteMeta(`INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`)
	mock.ExpectExec(insert).
		WithArgs("emails", "k", []byte(`{"uid":"u1"}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs("emails", "k", []byte(`{"uid":"u2"}`), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	ctx := context.Background()
	require.NoError(t, s.Create(ctx, "emails", "k", map[string]any{"uid": "u1"}))
	assert.ErrorIs(t, s.Create(ctx, "emails", "k", map[string]any{"uid": "u2"}), ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
