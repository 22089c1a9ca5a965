package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-pnl/internal/models"
)

const snapshotColumns = `id, wallet, timestamp, total_pnl, total_realized, total_unrealized,
	total_invested, win_rate, asset_count, trade_count, created_at`

type SnapshotRepo struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Record inserts s and fills in its ID and CreatedAt.
func (r *SnapshotRepo) Record(ctx context.Context, s *models.PnLSnapshot) error {
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO pnl_snapshots
		 (wallet, timestamp, total_pnl, total_realized, total_unrealized,
		  total_invested, win_rate, asset_count, trade_count)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING `+snapshotColumns,
		s.Wallet, ts, s.TotalPnL, s.TotalRealized, s.TotalUnrealized,
		s.TotalInvested, s.WinRate, s.AssetCount, s.TradeCount,
	)
	saved, err := scanSnapshot(row)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	*s = *saved
	return nil
}

// ListByWallet returns the most recent snapshots for wallet, newest first.
func (r *SnapshotRepo) ListByWallet(ctx context.Context, wallet string, limit int) ([]models.PnLSnapshot, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM pnl_snapshots
		 WHERE wallet = $1
		 ORDER BY timestamp DESC, id DESC
		 LIMIT $2`,
		wallet, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSnapshots(rows)
}

// PruneOlderThan deletes snapshots taken before cutoff and returns how many went.
func (r *SnapshotRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pnl_snapshots WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*models.PnLSnapshot, error) {
	var s models.PnLSnapshot
	err := row.Scan(&s.ID, &s.Wallet, &s.Timestamp, &s.TotalPnL, &s.TotalRealized, &s.TotalUnrealized,
		&s.TotalInvested, &s.WinRate, &s.AssetCount, &s.TradeCount, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectSnapshots(rows rowsIter) ([]models.PnLSnapshot, error) {
	out := []models.PnLSnapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
