package models

import "time"

// AssetLedger is the per-asset aggregate of a wallet's swap history.
type AssetLedger struct {
	AssetID          string    `json:"mint"`
	TotalBought      float64   `json:"totalBought"`
	TotalSold        float64   `json:"totalSold"`
	TotalBuyCost     float64   `json:"totalBuyCost"`
	TotalSellRevenue float64   `json:"totalSellRevenue"`
	AvgBuyPrice      float64   `json:"avgBuyPrice"`
	AvgSellPrice     float64   `json:"avgSellPrice"`
	RealizedPnL      float64   `json:"realizedPnl"`
	BuyCount         int       `json:"buyCount"`
	SellCount        int       `json:"sellCount"`
	FirstTradeAt     time.Time `json:"firstTradeAt"`
	LastTradeAt      time.Time `json:"lastTradeAt"`
}

// TokenInfo is market data for one asset. Price is in reference-asset terms.
type TokenInfo struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Image  string  `json:"image,omitempty"`
}

// HoldingSnapshot joins current balance and price for one asset.
// Either side may be unresolved, in which case it is zero.
type HoldingSnapshot struct {
	CurrentHolding float64
	CurrentPrice   float64
}

// AssetPnL is the final per-asset output unit.
type AssetPnL struct {
	AssetLedger
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	Image          string  `json:"image,omitempty"`
	CurrentHolding float64 `json:"currentHolding"`
	CurrentPrice   float64 `json:"currentPrice"`
	CurrentValue   float64 `json:"currentValue"`
	CostBasis      float64 `json:"costBasis"`
	UnrealizedPnL  float64 `json:"unrealizedPnl"`
	TotalPnL       float64 `json:"totalPnl"`
	PnLPercent     float64 `json:"pnlPercent"`
}

type PortfolioSummary struct {
	TotalPnL          float64 `json:"totalPnl"`
	TotalRealized     float64 `json:"totalRealized"`
	TotalUnrealized   float64 `json:"totalUnrealized"`
	TotalInvested     float64 `json:"totalInvested"`
	WinRate           float64 `json:"winRate"`
	TotalAssets       int     `json:"totalAssets"`
	WinningAssets     int     `json:"winningAssets"`
	TotalTrades       int     `json:"totalTrades"`
	ReferencePriceUSD float64 `json:"referencePriceUsd"`
	TotalPnLUSD       float64 `json:"totalPnlUsd"`
}

// PortfolioReport is the unfiltered PnL response.
type PortfolioReport struct {
	Tokens  []AssetPnL       `json:"tokens"`
	Summary PortfolioSummary `json:"summary"`
}
