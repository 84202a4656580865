package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"camrent-backend/internal/logger"
)

// ChangeChannel is the NOTIFY channel the change triggers publish on. The
// payload is the topic name.
const ChangeChannel = "camrent_changes"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		daily_rate NUMERIC(10,2) NOT NULL DEFAULT 0,
		total_units INTEGER NOT NULL CHECK (total_units >= 0),
		cached_available INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'active',
		description TEXT NOT NULL DEFAULT '',
		specifications TEXT NOT NULL DEFAULT '',
		version BIGINT NOT NULL DEFAULT 1,
		CONSTRAINT cached_available_bounds CHECK (cached_available >= 0 AND cached_available <= total_units)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id SERIAL PRIMARY KEY,
		resource_id INTEGER NOT NULL REFERENCES resources(id),
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		total_days INTEGER NOT NULL,
		daily_rate NUMERIC(10,2) NOT NULL,
		total_amount NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		admin_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		version BIGINT NOT NULL DEFAULT 1,
		CONSTRAINT reservation_window CHECK (start_date <= end_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_resource ON reservations(resource_id)`,
	`CREATE TABLE IF NOT EXISTS reservation_status_logs (
		id BIGSERIAL PRIMARY KEY,
		reservation_id INTEGER NOT NULL REFERENCES reservations(id) ON DELETE CASCADE,
		old_status TEXT NOT NULL DEFAULT '',
		new_status TEXT NOT NULL,
		actor TEXT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL,
		notes TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_status_logs_reservation ON reservation_status_logs(reservation_id, changed_at)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id SERIAL PRIMARY KEY,
		kind TEXT NOT NULL,
		message TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		attributes JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE OR REPLACE FUNCTION camrent_notify_change() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('` + ChangeChannel + `', TG_ARGV[0]);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS resources_changed ON resources`,
	`CREATE TRIGGER resources_changed AFTER INSERT OR UPDATE OR DELETE ON resources
		FOR EACH STATEMENT EXECUTE FUNCTION camrent_notify_change('resources')`,
	`DROP TRIGGER IF EXISTS reservations_changed ON reservations`,
	`CREATE TRIGGER reservations_changed AFTER INSERT OR UPDATE OR DELETE ON reservations
		FOR EACH STATEMENT EXECUTE FUNCTION camrent_notify_change('reservations')`,
	`DROP TRIGGER IF EXISTS status_logs_changed ON reservation_status_logs`,
	`CREATE TRIGGER status_logs_changed AFTER INSERT ON reservation_status_logs
		FOR EACH STATEMENT EXECUTE FUNCTION camrent_notify_change('reservations')`,
}

// Migrate creates the tables and change triggers if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	logger.Info("Database schema is up to date", "statements", len(schema))
	return nil
}
