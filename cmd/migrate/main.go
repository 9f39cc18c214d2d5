package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Schema for the rate, fundamental, positioning and model-registry
// tables. Applied in version order inside one transaction each.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	loadEnvFunc = godotenv.Load
	openPool    = pgxpool.New
)

type migration struct {
	Version int64
	Name    string
	UpSQL   string
	DownSQL string
}

var migrationFileRe = regexp.MustCompile(`^migrations/([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

func main() {
	loadEnvFunc()

	if len(os.Args) < 2 {
		log.Fatal("usage: migrate [up|down|status] [steps]")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     BIGINT PRIMARY KEY,
    name        TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`); err != nil {
		log.Fatalf("ensure schema_migrations table: %v", err)
	}

	migrations, err := loadMigrations(migrationsFS)
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	switch os.Args[1] {
	case "up":
		applied, err := migrateUp(ctx, pool, migrations)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Printf("schema up to date (%d applied)", applied)
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				log.Fatalf("invalid down steps: %q", os.Args[2])
			}
			steps = n
		}
		rolledBack, err := migrateDown(ctx, pool, migrations, steps)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("rolled back %d migration(s)", rolledBack)
	case "status":
		if err := printStatus(ctx, pool, migrations); err != nil {
			log.Fatalf("status: %v", err)
		}
	default:
		log.Fatalf("unknown command %q. usage: migrate [up|down|status] [steps]", os.Args[1])
	}
}

// loadMigrations pairs NNNN_name.up.sql with its .down.sql counterpart
// and returns them sorted by version. A version missing either half is
// an error so a partial rollback can never be shipped.
func loadMigrations(fsys fs.FS) ([]migration, error) {
	paths, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, errors.New("no migration files embedded")
	}

	byVersion := make(map[int64]*migration)
	for _, p := range paths {
		m := migrationFileRe.FindStringSubmatch(p)
		if m == nil {
			return nil, fmt.Errorf("migration filename %s does not match NNNN_name.(up|down).sql", p)
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse version in %s: %w", p, err)
		}

		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		if len(body) == 0 {
			return nil, fmt.Errorf("empty migration file: %s", p)
		}

		entry := byVersion[version]
		if entry == nil {
			entry = &migration{Version: version, Name: m[2]}
			byVersion[version] = entry
		} else if entry.Name != m[2] {
			return nil, fmt.Errorf("version %d has conflicting names %s and %s", version, entry.Name, m[2])
		}

		if m[3] == "up" {
			if entry.UpSQL != "" {
				return nil, fmt.Errorf("duplicate up migration for version %d", version)
			}
			entry.UpSQL = string(body)
		} else {
			if entry.DownSQL != "" {
				return nil, fmt.Errorf("duplicate down migration for version %d", version)
			}
			entry.DownSQL = string(body)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" || m.DownSQL == "" {
			return nil, fmt.Errorf("version %d needs both up and down files", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int64]struct{}, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int64]struct{})
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, migrations []migration) (int, error) {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := runInTx(ctx, pool, m.UpSQL,
			`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			return count, fmt.Errorf("version %d (%s) up: %w", m.Version, m.Name, err)
		}
		log.Printf("applied %04d_%s", m.Version, m.Name)
		count++
	}
	return count, nil
}

func migrateDown(ctx context.Context, pool *pgxpool.Pool, migrations []migration, steps int) (int, error) {
	byVersion := make(map[int64]migration, len(migrations))
	for _, m := range migrations {
		byVersion[m.Version] = m
	}

	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT $1`, steps)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var versions []int64
	for rows.Next() {
		var version int64
		if err := rows.Scan(&version); err != nil {
			return 0, err
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, version := range versions {
		m, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("no migration source for applied version %d", version)
		}
		if err := runInTx(ctx, pool, m.DownSQL,
			`DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
			return count, fmt.Errorf("version %d (%s) down: %w", m.Version, m.Name, err)
		}
		log.Printf("rolled back %04d_%s", m.Version, m.Name)
		count++
	}
	return count, nil
}

// runInTx executes the migration body and its bookkeeping statement in
// a single transaction so the ledger can never disagree with the schema.
func runInTx(ctx context.Context, pool *pgxpool.Pool, body, bookkeeping string, args ...any) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, body); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, bookkeeping, args...); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func printStatus(ctx context.Context, pool *pgxpool.Pool, migrations []migration) error {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Println("no migrations applied")
	}
	for _, m := range migrations {
		state := "pending"
		if _, ok := applied[m.Version]; ok {
			state = "applied"
		}
		log.Printf("%04d_%-28s %s", m.Version, m.Name, state)
	}
	return nil
}
