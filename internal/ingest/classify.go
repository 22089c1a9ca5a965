package ingest

import (
	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

// Classify turns a normalised record into a SwapEvent relative to wallet.
// It reports false for anything that is not a priceable two-sided swap
// against SOL: fewer than two legs, no SOL leg, no non-SOL leg, or a zero
// amount on either side.
//
// Direction is decided only by the asset leg: buy iff its destination is the
// wallet.
func Classify(rec models.RawSwapRecord, wallet string) (models.SwapEvent, bool) {
	if len(rec.Transfers) < 2 {
		return models.SwapEvent{}, false
	}

	asset, ok := assetLeg(rec.Transfers, wallet)
	if !ok {
		return models.SwapEvent{}, false
	}

	side := models.SideSell
	if asset.To == wallet {
		side = models.SideBuy
	}

	assetAmount := sumLegs(rec.Transfers, asset.Mint, side == models.SideBuy, wallet)
	if assetAmount == 0 {
		assetAmount = asset.Amount
	}
	walletOnAsset := asset.To == wallet || asset.From == wallet
	refAmount := referenceAmount(rec.Transfers, side, wallet, !walletOnAsset)

	if assetAmount <= 0 || refAmount <= 0 {
		return models.SwapEvent{}, false
	}

	return models.SwapEvent{
		Signature:       rec.Signature,
		Timestamp:       rec.Timestamp,
		Side:            side,
		AssetID:         asset.Mint,
		AssetAmount:     assetAmount,
		ReferenceAmount: refAmount,
		UnitPrice:       refAmount / assetAmount,
	}, true
}

// assetLeg picks the non-SOL leg, preferring one that touches the wallet.
func assetLeg(transfers []models.Transfer, wallet string) (models.Transfer, bool) {
	var first *models.Transfer
	for i := range transfers {
		t := &transfers[i]
		if t.Native || solana.IsNative(t.Mint) || t.Mint == "" {
			continue
		}
		if t.To == wallet || t.From == wallet {
			return *t, true
		}
		if first == nil {
			first = t
		}
	}
	if first == nil {
		return models.Transfer{}, false
	}
	return *first, true
}

// sumLegs totals token legs of mint flowing into (incoming) or out of the wallet.
func sumLegs(transfers []models.Transfer, mint string, incoming bool, wallet string) float64 {
	total := 0.0
	for _, t := range transfers {
		if t.Native || t.Mint != mint || t.Amount <= 0 {
			continue
		}
		if (incoming && t.To == wallet) || (!incoming && t.From == wallet) {
			total += t.Amount
		}
	}
	return total
}

// referenceAmount is the SOL paid on a buy or received on a sell.
//
// Wrapped-SOL token legs are swap legs and are summed. Plain lamport legs also
// carry fees, tips and rent, so only the largest one counts. When no SOL leg
// touches the wallet in the expected direction, the first SOL leg is used only
// if allowFallback is set; a wallet-side asset leg with no wallet-side SOL leg
// is a token-to-token route and yields 0.
func referenceAmount(transfers []models.Transfer, side models.Side, wallet string, allowFallback bool) float64 {
	incoming := side == models.SideSell

	if wrapped := sumLegs(transfers, solana.NativeMint, incoming, wallet); wrapped > 0 {
		return wrapped
	}

	largest := 0.0
	var fallback float64
	for _, t := range transfers {
		if !solana.IsNative(t.Mint) || t.Amount <= 0 {
			continue
		}
		if fallback == 0 {
			fallback = t.Amount
		}
		if !t.Native {
			continue
		}
		if (incoming && t.To == wallet) || (!incoming && t.From == wallet) {
			largest = max(largest, t.Amount)
		}
	}
	if largest > 0 {
		return largest
	}
	if !allowFallback {
		return 0
	}
	return fallback
}
