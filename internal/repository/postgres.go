package repository

import (
	"context"
	"directoryhub/internal/engine"
	"directoryhub/internal/models"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
	CREATE TABLE IF NOT EXISTS businesses (
		business_id TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		state       TEXT NOT NULL,
		city        TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS activity (
		id       BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL,
		action   TEXT NOT NULL,
		kind     TEXT NOT NULL,
		details  TEXT NOT NULL DEFAULT '',
		ts       TIMESTAMP NOT NULL DEFAULT NOW()
	);`

// PostgresRepository reads business counts and stores the activity feed.
type PostgresRepository struct {
	DB *sqlx.DB
}

func NewPostgresRepository(ctx context.Context, connStr string) (*PostgresRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresRepository{DB: db}, nil
}

// Migrate creates the tables when they are missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Close() error { return r.DB.Close() }

// Dashboard aggregates the businesses table the same way the CSV engine does.
func (r *PostgresRepository) Dashboard(ctx context.Context) (*models.DashboardData, error) {
	const query = `
		SELECT
			type,
			state,
			COUNT(*) AS count
		FROM businesses
		WHERE type <> '' AND state <> ''
		GROUP BY type, state
		ORDER BY type, count DESC, state`

	var cells []models.TypeStateCount
	if err := r.DB.SelectContext(ctx, &cells, query); err != nil {
		return nil, fmt.Errorf("failed to query state counts: %w", err)
	}
	return engine.Rollup(cells), nil
}
