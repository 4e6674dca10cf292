package repository

import (
	"context"
	"directoryhub/internal/models"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresActivityRecorder persists the recent-activity feed.
type PostgresActivityRecorder struct {
	db *sqlx.DB
}

func NewPostgresActivityRecorder(db *sqlx.DB) *PostgresActivityRecorder {
	return &PostgresActivityRecorder{db: db}
}

func (r *PostgresActivityRecorder) Record(ctx context.Context, e models.ActivityEntry) error {
	const query = `
		INSERT INTO activity (
			username, action, kind, details, ts
		) VALUES (
			$1, $2, $3, $4, NOW()
		)`

	user := e.User
	if user == "" {
		user = "system"
	}
	if _, err := r.db.ExecContext(ctx, query, user, e.Action, e.Kind, e.Details); err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

func (r *PostgresActivityRecorder) Recent(ctx context.Context, n int) ([]models.ActivityEntry, error) {
	const query = `
		SELECT
			id,
			username,
			action,
			kind,
			details,
			to_char(ts, 'YYYY-MM-DD HH24:MI:SS') AS ts
		FROM activity
		ORDER BY ts DESC, id DESC
		LIMIT $1`

	if n <= 0 {
		n = 10
	}
	var entries []models.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, query, n); err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	return entries, nil
}
