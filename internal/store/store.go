// Package store provides SQLite persistence for trend history: one upsert
// row per (id, platform) plus an append-only metrics snapshot per ingest.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/achernyakov/trendpulse/internal/store/migrations"
	"github.com/achernyakov/trendpulse/internal/trend"
	_ "modernc.org/sqlite"
)

// Store wraps the database connection.
type Store struct {
	db *sql.DB
}

// Open creates a new database connection at dbPath, creating the parent
// directory if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't handle concurrent writers well
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate runs all pending database migrations.
func (s *Store) Migrate(ctx context.Context) error {
	slog.Info("running database migrations")

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate migrations: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		if applied[file] {
			slog.Debug("migration already applied", "file", file)
			continue
		}

		slog.Info("applying migration", "file", file)

		content, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		sqlContent := extractUpMigration(string(content))

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, sqlContent); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}

	return nil
}

// extractUpMigration extracts the "up" portion of a migration file.
func extractUpMigration(content string) string {
	downMarker := "-- +migrate Down"
	idx := strings.Index(content, downMarker)
	if idx == -1 {
		return content
	}

	up := content[:idx]
	up = strings.TrimPrefix(up, "-- +migrate Up")
	return strings.TrimSpace(up)
}

// StoreTrendsBatch upserts each trend's row and appends a metrics
// snapshot, in one transaction.
func (s *Store) StoreTrendsBatch(ctx context.Context, trends []trend.Trend) error {
	if len(trends) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO trends (
			id, platform, type, name, description,
			current_volume, growth_rate, engagement_rate, sentiment,
			category, language, region, started_at, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, platform) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			description = excluded.description,
			current_volume = excluded.current_volume,
			growth_rate = excluded.growth_rate,
			engagement_rate = excluded.engagement_rate,
			sentiment = excluded.sentiment,
			category = excluded.category,
			language = excluded.language,
			region = excluded.region,
			last_seen = excluded.last_seen
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer upsert.Close()

	snapshot, err := tx.PrepareContext(ctx, `
		INSERT INTO trend_snapshots (
			trend_id, platform, current_volume, growth_rate,
			engagement_rate, sentiment, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot: %w", err)
	}
	defer snapshot.Close()

	now := time.Now().UTC()
	for _, t := range trends {
		var startedAt any
		if !t.Metadata.StartTime.IsZero() {
			startedAt = t.Metadata.StartTime.UTC()
		}

		if _, err := upsert.ExecContext(ctx,
			t.ID, string(t.Platform), string(t.Type), t.Name,
			nullString(t.Description),
			t.Metrics.CurrentVolume, t.Metrics.GrowthRate,
			t.Metrics.EngagementRate, t.Metrics.Sentiment,
			nullString(t.Metadata.Category), nullString(t.Metadata.Language),
			nullString(t.Metadata.Region), startedAt, now, now,
		); err != nil {
			return fmt.Errorf("upsert trend %s: %w", t.Key(), err)
		}

		if _, err := snapshot.ExecContext(ctx,
			t.ID, string(t.Platform),
			t.Metrics.CurrentVolume, t.Metrics.GrowthRate,
			t.Metrics.EngagementRate, t.Metrics.Sentiment, now,
		); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", t.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// TrendHistory returns stored snapshots newest-first, optionally scoped to
// one platform. An empty platform means all platforms.
func (s *Store) TrendHistory(ctx context.Context, platform trend.Platform, limit, offset int) ([]trend.Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT s.trend_id, s.platform, t.name,
		       s.current_volume, s.growth_rate, s.engagement_rate, s.sentiment,
		       s.recorded_at
		FROM trend_snapshots s
		JOIN trends t ON t.id = s.trend_id AND t.platform = s.platform
	`
	args := []any{}
	if platform != "" {
		query += " WHERE s.platform = ?"
		args = append(args, string(platform))
	}
	query += " ORDER BY s.recorded_at DESC, s.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var snaps []trend.Snapshot
	for rows.Next() {
		var snap trend.Snapshot
		var platform string
		if err := rows.Scan(
			&snap.TrendID, &platform, &snap.Name,
			&snap.Metrics.CurrentVolume, &snap.Metrics.GrowthRate,
			&snap.Metrics.EngagementRate, &snap.Metrics.Sentiment,
			&snap.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Platform = trend.Platform(platform)
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snaps, nil
}

// CleanupOldSnapshots deletes snapshots older than retentionDays, always
// keeping each trend's most recent snapshot and the trend row itself.
func (s *Store) CleanupOldSnapshots(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM trend_snapshots
		WHERE recorded_at < ?
		AND id NOT IN (
			SELECT MAX(id) FROM trend_snapshots GROUP BY trend_id, platform
		)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if deleted > 0 {
		slog.Info("cleaned up old snapshots", "deleted", deleted, "retention_days", retentionDays)
	}
	return deleted, nil
}

// HealthStatus probes the connection.
func (s *Store) HealthStatus(ctx context.Context) (trend.StoreHealth, error) {
	if err := s.db.PingContext(ctx); err != nil {
		return trend.StoreHealth{}, fmt.Errorf("ping database: %w", err)
	}

	return trend.StoreHealth{
		Connected:         true,
		ActiveConnections: s.db.Stats().OpenConnections,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
