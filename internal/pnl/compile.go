package pnl

import (
	"cmp"
	"math"
	"slices"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/shopspring/decimal"
)

// Market is the resolved view of current prices and balances. Missing
// entries are read as zero.
type Market struct {
	Tokens       map[string]models.TokenInfo
	Holdings     map[string]float64
	ReferenceUSD float64
}

// snapshot reads the asset's holding and price. Non-finite or negative
// values are treated as unresolved.
func (m Market) snapshot(assetID string) models.HoldingSnapshot {
	return models.HoldingSnapshot{
		CurrentHolding: usable(m.Holdings[assetID]),
		CurrentPrice:   usable(m.Tokens[assetID].Price),
	}
}

func usable(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// AssetResult joins one ledger with its holding snapshot.
func AssetResult(l models.AssetLedger, info models.TokenInfo, snap models.HoldingSnapshot) models.AssetPnL {
	a := models.AssetPnL{
		AssetLedger:    l,
		Symbol:         info.Symbol,
		Name:           info.Name,
		Image:          info.Image,
		CurrentHolding: snap.CurrentHolding,
		CurrentPrice:   snap.CurrentPrice,
	}
	a.CurrentValue = a.CurrentHolding * a.CurrentPrice
	a.CostBasis = l.AvgBuyPrice * a.CurrentHolding
	a.UnrealizedPnL = a.CurrentValue - a.CostBasis
	a.TotalPnL = l.RealizedPnL + a.UnrealizedPnL
	if l.TotalBuyCost > 0 {
		a.PnLPercent = a.TotalPnL / l.TotalBuyCost * 100
	}
	return a
}

// Compile builds an AssetPnL per ledger and folds them into a summary.
// Assets come back sorted by |totalPnl| descending; equal swings keep
// first-seen order.
func Compile(ledgers Ledgers, market Market) ([]models.AssetPnL, models.PortfolioSummary) {
	assets := make([]models.AssetPnL, 0, len(ledgers.Order))
	for _, id := range ledgers.Order {
		l, ok := ledgers.ByAsset[id]
		if !ok {
			continue
		}
		assets = append(assets, AssetResult(l, market.Tokens[id], market.snapshot(id)))
	}

	summary := Summarize(assets, usable(market.ReferenceUSD))

	slices.SortStableFunc(assets, func(a, b models.AssetPnL) int {
		return cmp.Compare(math.Abs(b.TotalPnL), math.Abs(a.TotalPnL))
	})
	return assets, summary
}

// Summarize folds per-asset results. Totals are summed as decimals so the
// result does not depend on the order of assets.
func Summarize(assets []models.AssetPnL, referenceUSD float64) models.PortfolioSummary {
	total, realized, unrealized, invested := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	s := models.PortfolioSummary{
		TotalAssets:       len(assets),
		ReferencePriceUSD: referenceUSD,
	}

	for _, a := range assets {
		total = total.Add(decimal.NewFromFloat(a.TotalPnL))
		realized = realized.Add(decimal.NewFromFloat(a.RealizedPnL))
		unrealized = unrealized.Add(decimal.NewFromFloat(a.UnrealizedPnL))
		invested = invested.Add(decimal.NewFromFloat(a.AvgBuyPrice * a.TotalBought))
		if a.TotalPnL > 0 {
			s.WinningAssets++
		}
		s.TotalTrades += a.BuyCount + a.SellCount
	}

	s.TotalPnL = total.InexactFloat64()
	s.TotalRealized = realized.InexactFloat64()
	s.TotalUnrealized = unrealized.InexactFloat64()
	s.TotalInvested = invested.InexactFloat64()
	if s.TotalAssets > 0 {
		s.WinRate = float64(s.WinningAssets) / float64(s.TotalAssets) * 100
	}
	s.TotalPnLUSD = s.TotalPnL * referenceUSD
	return s
}
