package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/airfare/internal/tools"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// QueryRecord is one logged tool invocation.
type QueryRecord struct {
	ID         uuid.UUID `json:"id"`
	Tool       string    `json:"tool"`
	StartCity  string    `json:"start_city,omitempty"`
	EndCity    string    `json:"end_city,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository provides access to the query log.
type Repository struct {
	q     Querier
	newID func() uuid.UUID
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool, newID: uuid.New}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q, newID: uuid.New}
}

// InsertQuery stores rec, assigning an ID when it has none.
func (r *Repository) InsertQuery(ctx context.Context, rec QueryRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = r.newID()
	}

	const q = `
		INSERT INTO query_log (id, tool, start_city, end_city, success, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.q.Exec(ctx, q,
		rec.ID, rec.Tool, rec.StartCity, rec.EndCity, rec.Success, rec.Error, rec.DurationMS,
	); err != nil {
		return fmt.Errorf("inserting query log for %s: %w", rec.Tool, err)
	}

	return nil
}

// RecentQueries returns up to limit records, newest first.
func (r *Repository) RecentQueries(ctx context.Context, limit int) ([]QueryRecord, error) {
	const q = `
		SELECT id, tool, start_city, end_city, success, error, duration_ms, created_at
		FROM query_log
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent queries: %w", err)
	}
	defer rows.Close()

	results := []QueryRecord{}
	for rows.Next() {
		var rec QueryRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Tool,
			&rec.StartCity,
			&rec.EndCity,
			&rec.Success,
			&rec.Error,
			&rec.DurationMS,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning query log row: %w", err)
		}
		results = append(results, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query log rows: %w", err)
	}

	return results, nil
}

// ObserveCall logs every tool invocation.
func (r *Repository) ObserveCall(ctx context.Context, call tools.Call) error {
	return r.InsertQuery(ctx, QueryRecord{
		Tool:       call.Tool,
		StartCity:  call.StartCity,
		EndCity:    call.EndCity,
		Success:    call.Success,
		Error:      call.Error,
		DurationMS: call.Duration.Milliseconds(),
	})
}
