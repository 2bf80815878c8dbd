package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createMatchHistorySQL = `
CREATE TABLE IF NOT EXISTS match_history (
	id           UUID PRIMARY KEY,
	file1_name   TEXT NOT NULL,
	file2_name   TEXT NOT NULL,
	status       TEXT NOT NULL,
	row_count    INTEGER NOT NULL DEFAULT 0,
	column_count INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	error_code   TEXT,
	ip_address   TEXT,
	user_agent   TEXT,
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS match_history_created_at_idx ON match_history (created_at DESC);
`

const selectMatchHistoryColumns = `id, file1_name, file2_name, status, row_count, column_count,
	error, error_code, ip_address, user_agent, duration_ms, created_at`

// PostgresHistory stores match history in the match_history table.
type PostgresHistory struct {
	pool *pgxpool.Pool
}

// NewPostgresHistory creates the store and ensures its table exists.
func NewPostgresHistory(ctx context.Context, pool *pgxpool.Pool) (*PostgresHistory, error) {
	if _, err := pool.Exec(ctx, createMatchHistorySQL); err != nil {
		return nil, fmt.Errorf("create match_history table: %w", err)
	}
	return &PostgresHistory{pool: pool}, nil
}

func (h *PostgresHistory) Record(ctx context.Context, rec MatchRecord) error {
	id := ToPgUUID(rec.ID)
	if !id.Valid {
		return fmt.Errorf("invalid match id %q", rec.ID)
	}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO match_history (id, file1_name, file2_name, status, row_count, column_count,
			error, error_code, ip_address, user_agent, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()))`,
		id,
		rec.File1Name,
		rec.File2Name,
		string(rec.Status),
		rec.Rows,
		rec.Columns,
		ToPgText(rec.Error),
		ToPgText(rec.ErrorCode),
		ToPgText(rec.IPAddress),
		ToPgText(rec.UserAgent),
		rec.Duration.Milliseconds(),
		toPgTimestamptz(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert match history: %w", err)
	}
	return nil
}

func (h *PostgresHistory) Recent(ctx context.Context, limit int) ([]MatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.pool.Query(ctx,
		"SELECT "+selectMatchHistoryColumns+" FROM match_history ORDER BY created_at DESC LIMIT $1",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query match history: %w", err)
	}
	defer rows.Close()

	var out []MatchRecord
	for rows.Next() {
		rec, err := scanMatchRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (h *PostgresHistory) Get(ctx context.Context, id string) (*MatchRecord, error) {
	uid := ToPgUUID(id)
	if !uid.Valid {
		return nil, ErrMatchNotFound
	}

	row := h.pool.QueryRow(ctx,
		"SELECT "+selectMatchHistoryColumns+" FROM match_history WHERE id = $1",
		uid,
	)
	rec, err := scanMatchRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	return rec, err
}

func (h *PostgresHistory) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := h.pool.Exec(ctx, "DELETE FROM match_history WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge match history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanMatchRecord(row pgx.Row) (*MatchRecord, error) {
	var rec MatchRecord
	var id pgtype.UUID
	var status string
	var errText, errCode, ip, ua pgtype.Text
	var durationMs int64
	err := row.Scan(&id, &rec.File1Name, &rec.File2Name, &status, &rec.Rows, &rec.Columns,
		&errText, &errCode, &ip, &ua, &durationMs, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.ID = PgUUIDToString(id)
	rec.Status = MatchStatus(status)
	rec.Error = errText.String
	rec.ErrorCode = errCode.String
	rec.IPAddress = ip.String
	rec.UserAgent = ua.String
	rec.Duration = time.Duration(durationMs) * time.Millisecond
	return &rec, nil
}
