package storage

import (
	"context"
	"fmt"

	"github.com/wonny/tradebot/internal/contracts"
)

// Entity kinds. Each kind is one repository in every backend.
const (
	KindHoldings     = "holdings"
	KindSignals      = "signals"
	KindFundamentals = "fundamentals"
	KindTrades       = "trades"
	KindMarketData   = "market_data"
	KindSettings     = "settings"
	KindExecutions   = "executions"
)

// Kinds lists every entity kind
var Kinds = []string{
	KindHoldings, KindSignals, KindFundamentals, KindTrades,
	KindMarketData, KindSettings, KindExecutions,
}

// Store bundles the repositories of every entity kind
// ⭐ SSOT: pipelines reach persisted state through Store only
type Store struct {
	Holdings     contracts.Repository[contracts.PortfolioAsset]
	Signals      contracts.Repository[contracts.TradeSignal]
	Fundamentals contracts.Repository[contracts.FundamentalData]
	Trades       contracts.Repository[contracts.ExecutedTrade]
	MarketData   contracts.Repository[contracts.PriceHistoryPoint]
	Settings     contracts.Repository[contracts.BotSettings]
	Executions   contracts.Repository[contracts.PipelineExecutionRecord]

	Backend string
	closeFn func() error
}

// OnClose registers the function releasing the backend connection
func (s *Store) OnClose(fn func() error) {
	s.closeFn = fn
}

// Close releases the backend connection
func (s *Store) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Replace swaps the whole content of repo for items (clear-then-bulk-insert).
// Not transactional: a concurrent reader may observe the empty repository.
func Replace[T contracts.Entity](ctx context.Context, repo contracts.Repository[T], items []T) error {
	if err := repo.Truncate(ctx); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	if len(items) == 0 {
		return nil
	}
	if err := repo.AddRange(ctx, items); err != nil {
		return fmt.Errorf("insert %d items: %w", len(items), err)
	}
	return nil
}

// Filter applies pred to items; a nil pred keeps everything
func Filter[T contracts.Entity](items []T, pred contracts.Predicate[T]) []T {
	if pred == nil {
		return items
	}
	kept := items[:0:0]
	for _, item := range items {
		if pred(item) {
			kept = append(kept, item)
		}
	}
	return kept
}
