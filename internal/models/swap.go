package models

import "time"

// Side of a swap relative to the queried wallet.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Transfer is one asset leg of a ledger transaction. Native-currency legs
// carry the wrapped-SOL mint so every leg has the same shape.
type Transfer struct {
	Mint   string
	Amount float64
	From   string
	To     string
	Native bool // moved as lamports rather than as a token
}

// RawSwapRecord is a provider transaction normalised to a flat list of legs.
type RawSwapRecord struct {
	Signature string
	Timestamp time.Time
	Transfers []Transfer
}

// SwapEvent is a classified two-sided swap against the reference asset.
type SwapEvent struct {
	Signature       string
	Timestamp       time.Time
	Side            Side
	AssetID         string
	AssetAmount     float64 // > 0
	ReferenceAmount float64 // > 0
	UnitPrice       float64 // ReferenceAmount / AssetAmount
}

// Trade is the display shape of a SwapEvent in a single-asset history.
type Trade struct {
	TxHash    string    `json:"tx_hash"`
	Side      Side      `json:"side"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

func (e SwapEvent) Trade() Trade {
	return Trade{
		TxHash:    e.Signature,
		Side:      e.Side,
		Amount:    e.AssetAmount,
		Price:     e.UnitPrice,
		CreatedAt: e.Timestamp.UTC(),
	}
}
