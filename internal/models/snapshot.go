package models

import "time"

// PnLSnapshot is a persisted copy of a computed PortfolioSummary.
type PnLSnapshot struct {
	ID              int64     `json:"id"`
	Wallet          string    `json:"wallet"`
	Timestamp       time.Time `json:"timestamp"`
	TotalPnL        float64   `json:"totalPnl"`
	TotalRealized   float64   `json:"totalRealized"`
	TotalUnrealized float64   `json:"totalUnrealized"`
	TotalInvested   float64   `json:"totalInvested"`
	WinRate         float64   `json:"winRate"`
	AssetCount      int       `json:"assetCount"`
	TradeCount      int       `json:"tradeCount"`
	CreatedAt       time.Time `json:"createdAt"`
}
