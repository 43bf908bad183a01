package storage_test

import (
	"context"
	"fmt"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/airfare/internal/storage"
	"github.com/neexbeast/airfare/internal/tools"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *uuid.UUID:
			*v = row[i].(uuid.UUID)
		case *string:
			*v = row[i].(string)
		case *bool:
			*v = row[i].(bool)
		case *int64:
			*v = row[i].(int64)
		case *time.Time:
			*v = row[i].(time.Time)
		}
	}
	return nil
}

// ---- mock MigrationPool ----

type mockMigrationPool struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockMigrationPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

// mockTx is a minimal pgx.Tx implementation for testing migrations.
type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error   { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error { return t.rollbackFn(ctx) }

func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

func okTx(record *[]string) *mockTx {
	return &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			if record != nil {
				*record = append(*record, sql)
			}
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
}

// ---- InsertQuery / ObserveCall ----

func TestInsertQuery_AssignsID(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.InsertQuery(context.Background(), storage.QueryRecord{Tool: "get_all_ticket_prices", StartCity: "北京", EndCity: "上海", Success: true})
	require.NoError(t, err)
	require.Len(t, capturedArgs, 7)
	assert.NotEqual(t, uuid.Nil, capturedArgs[0])
	assert.Equal(t, "get_all_ticket_prices", capturedArgs[1])
	assert.Equal(t, "北京", capturedArgs[2])
	assert.Equal(t, "上海", capturedArgs[3])
	assert.Equal(t, true, capturedArgs[4])
}

func TestInsertQuery_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.InsertQuery(context.Background(), storage.QueryRecord{Tool: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inserting query log")
}

func TestObserveCall_MapsFields(t *testing.T) {
	var capturedArgs []any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			capturedArgs = args
			return pgconn.CommandTag{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.ObserveCall(context.Background(), tools.Call{
		Tool:      "get_ticket_price_by_date",
		StartCity: "北京",
		EndCity:   "火星",
		Success:   false,
		Error:     "未找到到达城市",
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, capturedArgs, 7)
	assert.Equal(t, false, capturedArgs[4])
	assert.Equal(t, "未找到到达城市", capturedArgs[5])
	assert.Equal(t, int64(1500), capturedArgs[6])
}

// ---- RecentQueries ----

func TestRecentQueries_Found(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	id := uuid.New()
	rows := &fakeRows{
		rows: [][]any{{id, "get_lowest_ticket_price", "北京", "上海", true, "", int64(42), now}},
	}

	var gotLimit any
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, args ...any) (pgx.Rows, error) {
			gotLimit = args[0]
			return rows, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	results, err := repo.RecentQueries(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 20, gotLimit)
	assert.Equal(t, id, results[0].ID)
	assert.Equal(t, "get_lowest_ticket_price", results[0].Tool)
	assert.Equal(t, int64(42), results[0].DurationMS)
	assert.Equal(t, now, results[0].CreatedAt)
}

func TestRecentQueries_Empty(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	results, err := repo.RecentQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRecentQueries_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("query failed")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.RecentQueries(context.Background(), 10)
	require.Error(t, err)
}

func TestRecentQueries_ScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    [][]any{{uuid.New(), "x", "", "", true, "", int64(0), time.Now()}},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.RecentQueries(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestRecentQueries_RowsErr(t *testing.T) {
	rows := &fakeRows{rowErr: fmt.Errorf("rows iteration error")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.RecentQueries(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

// ---- RunMigrations ----

func TestRunMigrations_EmbeddedSchema(t *testing.T) {
	var executed []string
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return okTx(&executed), nil },
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, storage.Migrations()))
	require.NotEmpty(t, executed)
	assert.Contains(t, executed[0], "CREATE TABLE IF NOT EXISTS query_log")
}

func TestRunMigrations_EmptyFS(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, fstest.MapFS{})
	require.NoError(t, err)
}

func TestRunMigrations_SkipsNonSQL(t *testing.T) {
	var executed []string
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return okTx(&executed), nil },
	}
	migrations := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"README.md": {Data: []byte("docs")},
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, migrations))
	assert.Equal(t, []string{"SELECT 1;"}, executed)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	var executed []string
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return okTx(&executed), nil },
	}
	migrations := fstest.MapFS{
		"003_c.sql": {Data: []byte("SELECT 3;")},
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"002_b.sql": {Data: []byte("SELECT 2;")},
	}

	require.NoError(t, storage.RunMigrations(context.Background(), pool, migrations))
	assert.Equal(t, []string{"SELECT 1;", "SELECT 2;", "SELECT 3;"}, executed)
}

func TestRunMigrations_BeginError(t *testing.T) {
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	err := storage.RunMigrations(context.Background(), pool, fstest.MapFS{"001.sql": {Data: []byte("SELECT 1;")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration")
}

func TestRunMigrations_ExecErrorRollsBack(t *testing.T) {
	rolledBack := false
	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("syntax error")
		},
		commitFn: func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error {
			rolledBack = true
			return nil
		},
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, fstest.MapFS{"001.sql": {Data: []byte("INVALID SQL;")}})
	require.Error(t, err)
	assert.True(t, rolledBack)
}

func TestRunMigrations_CommitError(t *testing.T) {
	tx := okTx(nil)
	tx.commitFn = func(_ context.Context) error { return fmt.Errorf("commit failed") }
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, fstest.MapFS{"001.sql": {Data: []byte("SELECT 1;")}})
	require.Error(t, err)
}

func TestMigrations_ContainsSchema(t *testing.T) {
	names, err := fs.Glob(storage.Migrations(), "*.sql")
	require.NoError(t, err)
	assert.Contains(t, names, "001_create_query_log.sql")
}

// ---- Connect ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable")
	require.Error(t, err)
}
