package kv

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseBackend(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	_, err := b.Get(ctx, "tasks")
	require.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	require.NoError(t, b.Put(ctx, "tasks", []byte(`[{"id":1}]`)))
	require.NoError(t, b.Put(ctx, "apps", []byte(`[]`)))

	got, err := b.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(got))

	require.NoError(t, b.Put(ctx, "tasks", []byte(`[]`)))
	got, err = b.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, b.Delete(ctx, "tasks", "apps", "missing"))
	_, err = b.Get(ctx, "apps")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemoryBackend(t *testing.T) {
	m := NewMemory()
	exerciseBackend(t, m)
	assert.Empty(t, m.Keys())
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	value := []byte("abc")
	require.NoError(t, m.Put(ctx, "k", value))
	value[0] = 'z'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestBoltBackend(t *testing.T) {
	b, err := OpenBolt(filepath.Join(t.TempDir(), "console.db"))
	require.NoError(t, err)
	defer b.Close()
	exerciseBackend(t, b)
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "console.db")

	b, err := OpenBolt(path)
	require.NoError(t, err)
	require.NoError(t, b.Put(ctx, "currentUser", []byte(`{"name":"Ada"}`)))
	require.NoError(t, b.Close())

	b, err = OpenBolt(path)
	require.NoError(t, err)
	defer b.Close()
	got, err := b.Get(ctx, "currentUser")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada"}`, string(got))
}

func TestRedisBackend(t *testing.T) {
	srv := miniredis.RunT(t)
	r, err := NewRedis(context.Background(), RedisOptions{Addr: srv.Addr(), Prefix: "console:"})
	require.NoError(t, err)
	defer r.Close()

	exerciseBackend(t, r)

	require.NoError(t, r.Put(context.Background(), "budgets", []byte("[]")))
	assert.True(t, srv.Exists("console:budgets"))
}

func TestRedisRequiresAddress(t *testing.T) {
	_, err := NewRedis(context.Background(), RedisOptions{})
	require.Error(t, err)
}

func TestPostgresMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS console_kv").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresBackend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	p := NewPostgres(sqlx.NewDb(db, "postgres"))
	defer p.Close()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM console_kv WHERE key = $1`)).
		WithArgs("tasks").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	_, err = p.Get(ctx, "tasks")
	require.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	mock.ExpectExec("INSERT INTO console_kv").
		WithArgs("tasks", `[{"id":1}]`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, p.Put(ctx, "tasks", []byte(`[{"id":1}]`)))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value FROM console_kv WHERE key = $1`)).
		WithArgs("tasks").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":1}]`))
	got, err := p.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1}]`, string(got))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM console_kv WHERE key IN ($1, $2)`)).
		WithArgs("tasks", "apps").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, p.Delete(ctx, "tasks", "apps"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	b, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = Open(ctx, Options{Driver: "bolt", Path: filepath.Join(t.TempDir(), "c.db")})
	require.NoError(t, err)
	assert.IsType(t, &Bolt{}, b)
	require.NoError(t, b.Close())

	_, err = Open(ctx, Options{Driver: "bolt"})
	require.Error(t, err)

	_, err = Open(ctx, Options{Driver: "etcd"})
	require.Error(t, err)
}
