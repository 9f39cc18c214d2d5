package repository

import (
	"context"
	"time"

	"sendsmart/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createRatesTable = `
CREATE TABLE IF NOT EXISTS exchange_rates (
    from_currency TEXT        NOT NULL,
    to_currency   TEXT        NOT NULL,
    rate_date     DATE        NOT NULL,
    rate          NUMERIC     NOT NULL,
    PRIMARY KEY (from_currency, to_currency, rate_date)
);

CREATE INDEX IF NOT EXISTS idx_exchange_rates_corridor_date
    ON exchange_rates (from_currency, to_currency, rate_date DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RateRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRateRepository(pool PgxPool, tracer trace.Tracer) *RateRepository {
	return &RateRepository{pool: pool, tracer: tracer}
}

func (r *RateRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "rate-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createRatesTable)
	return err
}

func (r *RateRepository) UpsertRates(ctx context.Context, rates []domain.RateObservation) error {
	if len(rates) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "rate-repo.upsert-rates")
	defer span.End()

	batch := &pgx.Batch{}
	for _, obs := range rates {
		batch.Queue(
			`INSERT INTO exchange_rates (from_currency, to_currency, rate_date, rate)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (from_currency, to_currency, rate_date) DO UPDATE SET
			     rate = EXCLUDED.rate`,
			obs.From, obs.To, obs.Date, obs.Rate,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range rates {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListCorridorHistory returns the full daily history oldest-first, the
// order the feature engine consumes.
func (r *RateRepository) ListCorridorHistory(ctx context.Context, from, to string) ([]domain.RateObservation, error) {
	_, span := r.tracer.Start(ctx, "rate-repo.list-corridor-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT from_currency, to_currency, rate_date, rate
		 FROM exchange_rates
		 WHERE from_currency = $1 AND to_currency = $2
		 ORDER BY rate_date ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateObservation
	for rows.Next() {
		var obs domain.RateObservation
		if err := rows.Scan(&obs.From, &obs.To, &obs.Date, &obs.Rate); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (r *RateRepository) ListRecentHistory(ctx context.Context, from, to string, days int) ([]domain.RateObservation, error) {
	_, span := r.tracer.Start(ctx, "rate-repo.list-recent-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT from_currency, to_currency, rate_date, rate
		 FROM (
		     SELECT from_currency, to_currency, rate_date, rate
		     FROM exchange_rates
		     WHERE from_currency = $1 AND to_currency = $2
		     ORDER BY rate_date DESC
		     LIMIT $3
		 ) recent
		 ORDER BY rate_date ASC`,
		from, to, days,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RateObservation
	for rows.Next() {
		var obs domain.RateObservation
		if err := rows.Scan(&obs.From, &obs.To, &obs.Date, &obs.Rate); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (r *RateRepository) ListCorridors(ctx context.Context) ([]domain.Corridor, error) {
	_, span := r.tracer.Start(ctx, "rate-repo.list-corridors")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT from_currency, to_currency
		 FROM exchange_rates
		 ORDER BY from_currency, to_currency`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Corridor
	for rows.Next() {
		var c domain.Corridor
		if err := rows.Scan(&c.From, &c.To); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LatestRateDate reports how fresh a corridor's history is; zero time
// means no rows.
func (r *RateRepository) LatestRateDate(ctx context.Context, from, to string) (time.Time, error) {
	_, span := r.tracer.Start(ctx, "rate-repo.latest-rate-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT rate_date
		 FROM exchange_rates
		 WHERE from_currency = $1 AND to_currency = $2
		 ORDER BY rate_date DESC
		 LIMIT 1`,
		from, to,
	)
	if err != nil {
		return time.Time{}, err
	}
	defer rows.Close()

	var latest time.Time
	if rows.Next() {
		if err := rows.Scan(&latest); err != nil {
			return time.Time{}, err
		}
	}
	return latest, rows.Err()
}
