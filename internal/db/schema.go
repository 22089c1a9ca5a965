package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS pnl_snapshots (
	id               BIGSERIAL PRIMARY KEY,
	wallet           TEXT             NOT NULL,
	timestamp        TIMESTAMPTZ      NOT NULL,
	total_pnl        DOUBLE PRECISION NOT NULL,
	total_realized   DOUBLE PRECISION NOT NULL,
	total_unrealized DOUBLE PRECISION NOT NULL,
	total_invested   DOUBLE PRECISION NOT NULL,
	win_rate         DOUBLE PRECISION NOT NULL,
	asset_count      INTEGER          NOT NULL,
	trade_count      INTEGER          NOT NULL,
	created_at       TIMESTAMPTZ      NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_wallet_ts ON pnl_snapshots (wallet, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_pnl_snapshots_ts ON pnl_snapshots (timestamp)`,
}

// EnsureSchema creates the snapshot table and indexes if they are missing.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
