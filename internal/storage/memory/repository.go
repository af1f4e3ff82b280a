package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/storage"
)

// Repository is an in-process repository guarded by a mutex
type Repository[T contracts.Entity] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewRepository creates an empty repository
func NewRepository[T contracts.Entity]() *Repository[T] {
	return &Repository[T]{items: make(map[string]T)}
}

// GetAll returns the matching entities ordered by key
func (r *Repository[T]) GetAll(_ context.Context, pred contracts.Predicate[T]) ([]T, error) {
	r.mu.RLock()
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]T, 0, len(keys))
	for _, k := range keys {
		items = append(items, r.items[k])
	}
	r.mu.RUnlock()

	return storage.Filter(items, pred), nil
}

func (r *Repository[T]) GetByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, contracts.ErrNotFound
	}
	return item, nil
}

func (r *Repository[T]) Add(_ context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[entity.Key()] = entity
	return nil
}

func (r *Repository[T]) AddRange(_ context.Context, entities []T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range entities {
		r.items[e.Key()] = e
	}
	return nil
}

// Remove deletes id; a missing id is not an error
func (r *Repository[T]) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.items, id)
	return nil
}

func (r *Repository[T]) Truncate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]T)
	return nil
}

// NewStore creates a Store whose repositories live in memory
func NewStore() *storage.Store {
	return &storage.Store{
		Holdings:     NewRepository[contracts.PortfolioAsset](),
		Signals:      NewRepository[contracts.TradeSignal](),
		Fundamentals: NewRepository[contracts.FundamentalData](),
		Trades:       NewRepository[contracts.ExecutedTrade](),
		MarketData:   NewRepository[contracts.PriceHistoryPoint](),
		Settings:     NewRepository[contracts.BotSettings](),
		Executions:   NewRepository[contracts.PipelineExecutionRecord](),
		Backend:      "memory",
	}
}
