package pnl

import (
	"time"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/shopspring/decimal"
)

// Ledgers is the per-asset aggregate of one event stream. Order lists asset
// ids in first-seen order and is only used to break presentation ties.
type Ledgers struct {
	ByAsset map[string]models.AssetLedger
	Order   []string
}

// Assets returns the distinct asset ids, in first-seen order.
func (l Ledgers) Assets() []string {
	out := make([]string, len(l.Order))
	copy(out, l.Order)
	return out
}

type accumulator struct {
	bought, sold          decimal.Decimal
	buyCost, sellRevenue  decimal.Decimal
	buys, sells           int
	firstTrade, lastTrade time.Time
}

func (a *accumulator) add(ev models.SwapEvent) {
	amount := decimal.NewFromFloat(ev.AssetAmount)
	ref := decimal.NewFromFloat(ev.ReferenceAmount)

	switch ev.Side {
	case models.SideBuy:
		a.bought = a.bought.Add(amount)
		a.buyCost = a.buyCost.Add(ref)
		a.buys++
	case models.SideSell:
		a.sold = a.sold.Add(amount)
		a.sellRevenue = a.sellRevenue.Add(ref)
		a.sells++
	}

	if a.firstTrade.IsZero() || ev.Timestamp.Before(a.firstTrade) {
		a.firstTrade = ev.Timestamp
	}
	if ev.Timestamp.After(a.lastTrade) {
		a.lastTrade = ev.Timestamp
	}
}

func (a *accumulator) ledger(assetID string) models.AssetLedger {
	l := models.AssetLedger{
		AssetID:          assetID,
		TotalBought:      a.bought.InexactFloat64(),
		TotalSold:        a.sold.InexactFloat64(),
		TotalBuyCost:     a.buyCost.InexactFloat64(),
		TotalSellRevenue: a.sellRevenue.InexactFloat64(),
		BuyCount:         a.buys,
		SellCount:        a.sells,
		FirstTradeAt:     a.firstTrade.UTC(),
		LastTradeAt:      a.lastTrade.UTC(),
	}
	if l.TotalBought > 0 {
		l.AvgBuyPrice = l.TotalBuyCost / l.TotalBought
	}
	if l.TotalSold > 0 {
		l.AvgSellPrice = l.TotalSellRevenue / l.TotalSold
	}
	l.RealizedPnL = l.TotalSellRevenue - l.AvgBuyPrice*l.TotalSold
	return l
}

// BuildLedgers groups events by asset and accumulates weighted-average cost
// basis. Sums are exact decimals, so any permutation of events yields the
// same ledgers. Events with a non-positive amount on either side are ignored.
func BuildLedgers(events []models.SwapEvent) Ledgers {
	accs := make(map[string]*accumulator)
	var order []string

	for _, ev := range events {
		if ev.AssetAmount <= 0 || ev.ReferenceAmount <= 0 {
			continue
		}
		acc, ok := accs[ev.AssetID]
		if !ok {
			acc = &accumulator{
				bought: decimal.Zero, sold: decimal.Zero,
				buyCost: decimal.Zero, sellRevenue: decimal.Zero,
			}
			accs[ev.AssetID] = acc
			order = append(order, ev.AssetID)
		}
		acc.add(ev)
	}

	out := Ledgers{
		ByAsset: make(map[string]models.AssetLedger, len(accs)),
		Order:   order,
	}
	for id, acc := range accs {
		out.ByAsset[id] = acc.ledger(id)
	}
	return out
}
