package repository

import (
	"context"
	"time"

	"sendsmart/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

const createMacroTables = `
CREATE TABLE IF NOT EXISTS fundamentals (
    series     TEXT        NOT NULL,
    obs_date   DATE        NOT NULL,
    value      NUMERIC     NOT NULL,
    PRIMARY KEY (series, obs_date)
);

CREATE INDEX IF NOT EXISTS idx_fundamentals_series_date
    ON fundamentals (series, obs_date DESC);

CREATE TABLE IF NOT EXISTS cot_positioning (
    currency      TEXT        NOT NULL,
    report_date   DATE        NOT NULL,
    lev_net       NUMERIC     NOT NULL,
    asset_mgr_net NUMERIC     NOT NULL,
    open_interest NUMERIC     NOT NULL,
    PRIMARY KEY (currency, report_date)
);
`

// MacroRepository stores the low-frequency tables: long-format macro
// series (one row per series per date) and weekly futures positioning.
type MacroRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewMacroRepository(pool PgxPool, tracer trace.Tracer) *MacroRepository {
	return &MacroRepository{pool: pool, tracer: tracer}
}

func (r *MacroRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "macro-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createMacroTables)
	return err
}

func (r *MacroRepository) UpsertFundamentals(ctx context.Context, observations []domain.FundamentalObservation) error {
	if len(observations) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "macro-repo.upsert-fundamentals")
	defer span.End()

	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(
			`INSERT INTO fundamentals (series, obs_date, value)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (series, obs_date) DO UPDATE SET
			     value = EXCLUDED.value`,
			obs.Series, obs.Date, obs.Value,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range observations {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *MacroRepository) ListFundamentals(ctx context.Context, from, to time.Time) ([]domain.FundamentalObservation, error) {
	_, span := r.tracer.Start(ctx, "macro-repo.list-fundamentals")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT series, obs_date, value
		 FROM fundamentals
		 WHERE obs_date >= $1 AND obs_date <= $2
		 ORDER BY series, obs_date ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FundamentalObservation
	for rows.Next() {
		var obs domain.FundamentalObservation
		if err := rows.Scan(&obs.Series, &obs.Date, &obs.Value); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func (r *MacroRepository) UpsertPositioning(ctx context.Context, observations []domain.PositioningObservation) error {
	if len(observations) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "macro-repo.upsert-positioning")
	defer span.End()

	batch := &pgx.Batch{}
	for _, obs := range observations {
		batch.Queue(
			`INSERT INTO cot_positioning (currency, report_date, lev_net, asset_mgr_net, open_interest)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (currency, report_date) DO UPDATE SET
			     lev_net = EXCLUDED.lev_net,
			     asset_mgr_net = EXCLUDED.asset_mgr_net,
			     open_interest = EXCLUDED.open_interest`,
			obs.Currency, obs.ReportDate, obs.LevNet, obs.AssetMgrNet, obs.OpenInterest,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range observations {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *MacroRepository) ListPositioning(ctx context.Context, from, to time.Time) ([]domain.PositioningObservation, error) {
	_, span := r.tracer.Start(ctx, "macro-repo.list-positioning")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT currency, report_date, lev_net, asset_mgr_net, open_interest
		 FROM cot_positioning
		 WHERE report_date >= $1 AND report_date <= $2
		 ORDER BY currency, report_date ASC`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PositioningObservation
	for rows.Next() {
		var obs domain.PositioningObservation
		if err := rows.Scan(&obs.Currency, &obs.ReportDate, &obs.LevNet, &obs.AssetMgrNet, &obs.OpenInterest); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}
