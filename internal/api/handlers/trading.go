package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/pkg/logger"
)

// TradingHandler exposes signals, holdings and executed trades
type TradingHandler struct {
	store  *storage.Store
	loc    *time.Location
	now    func() time.Time
	logger *logger.Logger
}

// NewTradingHandler creates a new trading handler. Dates are interpreted in loc.
func NewTradingHandler(store *storage.Store, loc *time.Location, log *logger.Logger) *TradingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TradingHandler{
		store:  store,
		loc:    loc,
		now:    time.Now,
		logger: log,
	}
}

// ============================================================
// Signals
// ============================================================

// GetSignals returns the signals of one day, strongest first.
// Hold signals are included only with ?all=true.
// GET /api/signals?date=YYYY-MM-DD&all=true
func (h *TradingHandler) GetSignals(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(r, "date", h.loc, contracts.DateOf(h.now(), h.loc))
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
		return
	}
	day := date.Format("2006-01-02")
	all := r.URL.Query().Get("all") == "true"

	signals, err := h.store.Signals.GetAll(r.Context(), func(s contracts.TradeSignal) bool {
		if s.Date.Format("2006-01-02") != day {
			return false
		}
		return all || s.Action.IsActionable()
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to get signals")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve signals")
		return
	}

	sort.Slice(signals, func(i, j int) bool {
		mi, mj := signals[i].Confidence.Magnitude(), signals[j].Confidence.Magnitude()
		if mi != mj {
			return mi > mj
		}
		return signals[i].Ticker.Symbol < signals[j].Ticker.Symbol
	})

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":    day,
		"signals": signals,
	})
}

// ============================================================
// Portfolio
// ============================================================

// PortfolioResponse is the stored holdings snapshot
type PortfolioResponse struct {
	Holdings    []contracts.PortfolioAsset `json:"holdings"`
	TotalValue  float64                    `json:"total_value"`
	HoldingSize int                        `json:"holding_size"`
}

// GetPortfolio returns the stored holdings, largest position first
// GET /api/portfolio
func (h *TradingHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.store.Holdings.GetAll(r.Context(), nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get holdings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolio")
		return
	}

	sort.Slice(holdings, func(i, j int) bool {
		return holdings[i].MarketValue() > holdings[j].MarketValue()
	})

	var total float64
	for _, a := range holdings {
		total += a.MarketValue()
	}

	respondJSON(w, http.StatusOK, PortfolioResponse{
		Holdings:    holdings,
		TotalValue:  total,
		HoldingSize: len(holdings),
	})
}

// ============================================================
// Trades
// ============================================================

// GetTrades returns executed trades, newest first.
// ?date restricts to trades executed that day.
// GET /api/trades?date=YYYY-MM-DD&limit=
func (h *TradingHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	date, ok := queryDate(r, "date", h.loc, time.Time{})
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
		return
	}

	var pred contracts.Predicate[contracts.ExecutedTrade]
	if !date.IsZero() {
		day := date.Format("2006-01-02")
		pred = func(t contracts.ExecutedTrade) bool {
			return t.ExecutedAt.In(h.loc).Format("2006-01-02") == day
		}
	}

	trades, err := h.store.Trades.GetAll(r.Context(), pred)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get trades")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve trades")
		return
	}

	sort.Slice(trades, func(i, j int) bool {
		return trades[i].ExecutedAt.After(trades[j].ExecutedAt)
	})
	if limit := queryInt(r, "limit", 100); len(trades) > limit {
		trades = trades[:limit]
	}

	respondJSON(w, http.StatusOK, trades)
}
