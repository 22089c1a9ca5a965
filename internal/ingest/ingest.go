package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

// ErrHistoryUnavailable means the transaction-history provider could not be
// reached. It is the only upstream failure that fails a request.
var ErrHistoryUnavailable = errors.New("transaction history unavailable")

// HistoryProvider lists a wallet's most recent swap transactions, newest first.
type HistoryProvider interface {
	ListSwaps(ctx context.Context, wallet string, limit int) ([]models.RawSwapRecord, error)
}

type Ingestor struct {
	history HistoryProvider
	limit   int
}

func NewIngestor(history HistoryProvider, limit int) *Ingestor {
	if limit <= 0 {
		limit = 100
	}
	return &Ingestor{history: history, limit: limit}
}

// Events fetches the wallet's bounded swap window and classifies it. When
// assetFilter is set only events for that asset are returned. Unusable
// records are skipped; zero events is a valid result.
func (i *Ingestor) Events(ctx context.Context, wallet, assetFilter string) ([]models.SwapEvent, error) {
	if err := solana.ValidateAddress(wallet); err != nil {
		return nil, fmt.Errorf("wallet: %w", err)
	}
	if assetFilter != "" {
		if err := solana.ValidateAddress(assetFilter); err != nil {
			return nil, fmt.Errorf("token: %w", err)
		}
	}

	records, err := i.history.ListSwaps(ctx, wallet, i.limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryUnavailable, err)
	}

	events := make([]models.SwapEvent, 0, len(records))
	skipped := 0
	for _, rec := range records {
		ev, ok := Classify(rec, wallet)
		if !ok {
			skipped++
			continue
		}
		if assetFilter != "" && ev.AssetID != assetFilter {
			continue
		}
		events = append(events, ev)
	}

	if skipped > 0 {
		fmt.Printf("[INGEST] %d of %d records skipped (not a SOL swap)\n", skipped, len(records))
	}
	return events, nil
}
