package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/tradebot/internal/contracts"
	"github.com/wonny/tradebot/internal/storage"
	"github.com/wonny/tradebot/pkg/database"
)

// Repository stores one entity kind as rows of tradebot.entities
type Repository[T contracts.Entity] struct {
	pool  *pgxpool.Pool
	kind  string
	codec storage.Codec[T]
}

// NewRepository creates the repository of kind
func NewRepository[T contracts.Entity](pool *pgxpool.Pool, kind string) *Repository[T] {
	return &Repository[T]{
		pool:  pool,
		kind:  kind,
		codec: storage.NewCodec[T](kind),
	}
}

const upsertQuery = `
	INSERT INTO tradebot.entities (kind, id, body, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (kind, id) DO UPDATE SET
		body = EXCLUDED.body,
		updated_at = EXCLUDED.updated_at
`

// GetAll returns the matching entities ordered by key
func (r *Repository[T]) GetAll(ctx context.Context, pred contracts.Predicate[T]) ([]T, error) {
	query := `
		SELECT id, body
		FROM tradebot.entities
		WHERE kind = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, r.kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.kind, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.kind, err)
		}

		item, err := r.codec.Decode(body)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", r.kind, id, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", r.kind, err)
	}

	return storage.Filter(items, pred), nil
}

func (r *Repository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	query := `
		SELECT body
		FROM tradebot.entities
		WHERE kind = $1 AND id = $2
	`

	var body []byte
	err := r.pool.QueryRow(ctx, query, r.kind, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, contracts.ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("failed to get %s/%s: %w", r.kind, id, err)
	}

	return r.codec.Decode(body)
}

func (r *Repository[T]) Add(ctx context.Context, entity T) error {
	body, err := r.codec.Encode(entity)
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, upsertQuery, r.kind, entity.Key(), body); err != nil {
		return fmt.Errorf("failed to save %s/%s: %w", r.kind, entity.Key(), err)
	}
	return nil
}

// AddRange upserts every entity in one transaction
func (r *Repository[T]) AddRange(ctx context.Context, entities []T) error {
	if len(entities) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, e := range entities {
		body, err := r.codec.Encode(e)
		if err != nil {
			return err
		}
		batch.Queue(upsertQuery, r.kind, e.Key(), body)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save %d %s: %w", len(entities), r.kind, err)
	}

	return tx.Commit(ctx)
}

func (r *Repository[T]) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM tradebot.entities WHERE kind = $1 AND id = $2`

	if _, err := r.pool.Exec(ctx, query, r.kind, id); err != nil {
		return fmt.Errorf("failed to remove %s/%s: %w", r.kind, id, err)
	}
	return nil
}

func (r *Repository[T]) Truncate(ctx context.Context) error {
	query := `DELETE FROM tradebot.entities WHERE kind = $1`

	if _, err := r.pool.Exec(ctx, query, r.kind); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", r.kind, err)
	}
	return nil
}

// NewStore creates a Store backed by the tradebot.entities table
func NewStore(db *database.DB) *storage.Store {
	pool := db.Pool

	store := &storage.Store{
		Holdings:     NewRepository[contracts.PortfolioAsset](pool, storage.KindHoldings),
		Signals:      NewRepository[contracts.TradeSignal](pool, storage.KindSignals),
		Fundamentals: NewRepository[contracts.FundamentalData](pool, storage.KindFundamentals),
		Trades:       NewRepository[contracts.ExecutedTrade](pool, storage.KindTrades),
		MarketData:   NewRepository[contracts.PriceHistoryPoint](pool, storage.KindMarketData),
		Settings:     NewRepository[contracts.BotSettings](pool, storage.KindSettings),
		Executions:   NewRepository[contracts.PipelineExecutionRecord](pool, storage.KindExecutions),
		Backend:      "postgres",
	}
	store.OnClose(func() error {
		db.Close()
		return nil
	})
	return store
}
