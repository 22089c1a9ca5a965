package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kjannette/trahn-pnl/internal/models"
	"github.com/kjannette/trahn-pnl/internal/solana"
)

const defaultHistoryLimit = 50

type tradesResponse struct {
	Trades []models.Trade `json:"trades"`
}

func (s *Server) handlePnL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wallet := strings.TrimSpace(q.Get("wallet"))
	token := strings.TrimSpace(q.Get("token"))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter is required")
		return
	}

	ctx := r.Context()

	if token != "" {
		trades, err := s.pnl.Trades(ctx, wallet, token)
		if err != nil {
			writeServiceError(w, err, "failed to load trades")
			return
		}
		writeJSON(w, http.StatusOK, tradesResponse{Trades: trades})
		return
	}

	report, err := s.pnl.Portfolio(ctx, wallet)
	if err != nil {
		writeServiceError(w, err, "failed to compute PnL")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePnLHistory(w http.ResponseWriter, r *http.Request) {
	wallet := strings.TrimSpace(r.URL.Query().Get("wallet"))
	if wallet == "" {
		writeError(w, http.StatusBadRequest, "wallet query parameter is required")
		return
	}

	snaps, err := s.pnl.History(r.Context(), wallet, parseLimit(r, defaultHistoryLimit))
	if err != nil {
		writeServiceError(w, err, "failed to fetch PnL history")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// writeServiceError maps input errors to 400 and everything else to a
// generic 500. The service has already logged the failing stage.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, solana.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fmt.Printf("[API] %s: %v\n", msg, err)
	writeError(w, http.StatusInternalServerError, msg)
}
