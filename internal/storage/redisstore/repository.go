package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/storage"
	redisclient "github.com/wonny/tradebot/pkg/redis"
)

// Repository stores one entity kind as a redis hash: field = entity key, value = JSON
type Repository[T contracts.Entity] struct {
	rdb   *redis.Client
	key   string
	codec storage.Codec[T]
}

// NewRepository creates the repository of kind under prefix
func NewRepository[T contracts.Entity](rdb *redis.Client, prefix, kind string) *Repository[T] {
	return &Repository[T]{
		rdb:   rdb,
		key:   HashKey(prefix, kind),
		codec: storage.NewCodec[T](kind),
	}
}

// HashKey returns the redis key of a kind
func HashKey(prefix, kind string) string {
	return fmt.Sprintf("%s:store:%s", prefix, kind)
}

// GetAll returns the matching entities ordered by key
func (r *Repository[T]) GetAll(ctx context.Context, pred contracts.Predicate[T]) ([]T, error) {
	raw, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", r.key, err)
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	items := make([]T, 0, len(keys))
	for _, k := range keys {
		item, err := r.codec.Decode([]byte(raw[k]))
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", r.key, k, err)
		}
		items = append(items, item)
	}

	return storage.Filter(items, pred), nil
}

func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T

	data, err := r.rdb.HGet(ctx, r.key, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, contracts.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("hget %s/%s: %w", r.key, id, err)
	}

	return r.codec.Decode(data)
}

func (r *Repository[T]) Add(ctx context.Context, entity T) error {
	data, err := r.codec.Encode(entity)
	if err != nil {
		return err
	}
	if err := r.rdb.HSet(ctx, r.key, entity.Key(), data).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", r.key, entity.Key(), err)
	}
	return nil
}

// AddRange writes every entity in one pipelined round trip
func (r *Repository[T]) AddRange(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}

	pipe := r.rdb.Pipeline()
	for _, e := range entities {
		data, err := r.codec.Encode(e)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, r.key, e.Key(), data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline hset %s: %w", r.key, err)
	}
	return nil
}

func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	if err := r.rdb.HDel(ctx, r.key, id).Err(); err != nil {
		return fmt.Errorf("hdel %s/%s: %w", r.key, id, err)
	}
	return nil
}

func (r *Repository[T]) Truncate(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", r.key, err)
	}
	return nil
}

// NewStore creates a Store backed by redis hashes
func NewStore(client *redisclient.Client) *storage.Store {
	rdb := client.Redis()
	prefix := client.Prefix()

	store := &storage.Store{
		Holdings:     NewRepository[contracts.PortfolioAsset](rdb, prefix, storage.KindHoldings),
		Signals:      NewRepository[contracts.TradeSignal](rdb, prefix, storage.KindSignals),
		Fundamentals: NewRepository[contracts.FundamentalData](rdb, prefix, storage.KindFundamentals),
		Trades:       NewRepository[contracts.ExecutedTrade](rdb, prefix, storage.KindTrades),
		MarketData:   NewRepository[contracts.PriceHistoryPoint](rdb, prefix, storage.KindMarketData),
		Settings:     NewRepository[contracts.BotSettings](rdb, prefix, storage.KindSettings),
		Executions:   NewRepository[contracts.PipelineExecutionRecord](rdb, prefix, storage.KindExecutions),
		Backend:      "redis",
	}
	store.OnClose(client.Close)
	return store
}
