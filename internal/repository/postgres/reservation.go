package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/repository"
	"camrent-backend/internal/utils"

	"github.com/lib/pq"
)

const reservationSelect = `SELECT r.id, r.resource_id, res.name, r.customer_name, r.customer_email, r.customer_phone,
	r.start_date, r.end_date, r.start_time, r.end_time, r.total_days, r.daily_rate, r.total_amount,
	r.status, r.notes, r.admin_notes, r.created_at, r.version
	FROM reservations r JOIN resources res ON res.id = r.resource_id`

type reservationRepository struct {
	db DBTX
}

func NewReservationRepository(db DBTX) repository.ReservationRepository {
	return &reservationRepository{db: db}
}

func scanReservation(row interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	var rv domain.Reservation
	var start, end time.Time
	err := row.Scan(&rv.ID, &rv.ResourceID, &rv.ResourceName, &rv.CustomerName, &rv.CustomerEmail, &rv.CustomerPhone,
		&start, &end, &rv.StartTime, &rv.EndTime, &rv.TotalDays, &rv.DailyRate, &rv.TotalAmount,
		&rv.Status, &rv.Notes, &rv.AdminNotes, &rv.CreatedAt, &rv.Version)
	if err != nil {
		return nil, err
	}
	rv.StartDate = utils.FormatDate(start)
	rv.EndDate = utils.FormatDate(end)
	return &rv, nil
}

func (r *reservationRepository) Create(ctx context.Context, rv *domain.Reservation) error {
	logger.EnterMethod("reservationRepository.Create", "resourceID", rv.ResourceID, "startDate", rv.StartDate, "endDate", rv.EndDate)

	query := `INSERT INTO reservations (resource_id, customer_name, customer_email, customer_phone, start_date, end_date,
	          start_time, end_time, total_days, daily_rate, total_amount, status, notes, admin_notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) RETURNING id, version`
	logger.DatabaseCall("INSERT", "reservations", "resourceID", rv.ResourceID)
	err := r.db.QueryRowContext(ctx, query, rv.ResourceID, rv.CustomerName, rv.CustomerEmail, rv.CustomerPhone,
		rv.StartDate, rv.EndDate, rv.StartTime, rv.EndTime, rv.TotalDays, rv.DailyRate, rv.TotalAmount,
		rv.Status, rv.Notes, rv.AdminNotes, rv.CreatedAt).Scan(&rv.ID, &rv.Version)
	logger.DatabaseResult("INSERT", 1, err, "reservationID", rv.ID)
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.Create", err, "resourceID", rv.ResourceID)
		return err
	}

	for _, change := range rv.StatusChangeLogs {
		if err := r.insertChange(ctx, rv.ID, change); err != nil {
			logger.ExitMethodWithError("reservationRepository.Create", err, "reservationID", rv.ID)
			return err
		}
	}
	logger.ExitMethod("reservationRepository.Create", "reservationID", rv.ID)
	return nil
}

func (r *reservationRepository) insertChange(ctx context.Context, reservationID int32, c domain.StatusChange) error {
	query := `INSERT INTO reservation_status_logs (reservation_id, old_status, new_status, actor, changed_at, notes)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, query, reservationID, c.OldStatus, c.NewStatus, c.Actor, c.ChangedAt, c.Notes)
	return err
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	rv, err := scanReservation(r.db.QueryRowContext(ctx, reservationSelect+` WHERE r.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	logs, err := r.loadLogs(ctx, []int32{id})
	if err != nil {
		return nil, err
	}
	rv.StatusChangeLogs = logs[id]
	return rv, nil
}

func (r *reservationRepository) List(ctx context.Context, filter domain.ReservationFilter) ([]domain.Reservation, error) {
	query := reservationSelect + ` WHERE 1=1`
	var args []any
	if filter.ResourceID != 0 {
		args = append(args, filter.ResourceID)
		query += fmt.Sprintf(" AND r.resource_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	query += " ORDER BY r.start_date, r.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	var ids []int32
	for rows.Next() {
		rv, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *rv)
		ids = append(ids, rv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return reservations, nil
	}

	logs, err := r.loadLogs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range reservations {
		reservations[i].StatusChangeLogs = logs[reservations[i].ID]
	}
	return reservations, nil
}

func (r *reservationRepository) loadLogs(ctx context.Context, ids []int32) (map[int32][]domain.StatusChange, error) {
	query := `SELECT reservation_id, old_status, new_status, actor, changed_at, notes
	          FROM reservation_status_logs WHERE reservation_id = ANY($1) ORDER BY reservation_id, changed_at, id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make(map[int32][]domain.StatusChange, len(ids))
	for rows.Next() {
		var id int32
		var c domain.StatusChange
		if err := rows.Scan(&id, &c.OldStatus, &c.NewStatus, &c.Actor, &c.ChangedAt, &c.Notes); err != nil {
			return nil, err
		}
		logs[id] = append(logs[id], c)
	}
	return logs, rows.Err()
}

func (r *reservationRepository) AppendStatus(ctx context.Context, id int32, expectedVersion int64, change domain.StatusChange) (int64, error) {
	logger.EnterMethod("reservationRepository.AppendStatus", "reservationID", id, "version", expectedVersion,
		"oldStatus", change.OldStatus, "newStatus", change.NewStatus)

	version, err := r.bumpVersion(ctx, `UPDATE reservations SET status = $1, version = version + 1
	          WHERE id = $2 AND version = $3 RETURNING version`, change.NewStatus, id, expectedVersion)
	if err == nil {
		logger.DatabaseCall("INSERT", "reservation_status_logs", "reservationID", id)
		err = r.insertChange(ctx, id, change)
		logger.DatabaseResult("INSERT", 1, err, "reservationID", id)
	}
	if err != nil {
		logger.ExitMethodWithError("reservationRepository.AppendStatus", err, "reservationID", id)
		return 0, err
	}
	logger.ExitMethod("reservationRepository.AppendStatus", "reservationID", id, "version", version)
	return version, nil
}

func (r *reservationRepository) UpdateAdminNotes(ctx context.Context, id int32, expectedVersion int64, notes string) (int64, error) {
	return r.bumpVersion(ctx, `UPDATE reservations SET admin_notes = $1, version = version + 1
	          WHERE id = $2 AND version = $3 RETURNING version`, notes, id, expectedVersion)
}

func (r *reservationRepository) bumpVersion(ctx context.Context, query string, value any, id int32, expectedVersion int64) (int64, error) {
	logger.DatabaseCall("UPDATE", "reservations", "reservationID", id)
	var version int64
	err := r.db.QueryRowContext(ctx, query, value, id, expectedVersion).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = repository.ErrVersionConflict
	}
	logger.DatabaseResult("UPDATE", 1, err, "reservationID", id)
	return version, err
}

func (r *reservationRepository) Delete(ctx context.Context, id int32, expectedVersion int64) error {
	logger.DatabaseCall("DELETE", "reservations", "reservationID", id)
	result, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err, "reservationID", id)
		return err
	}
	rows, err := result.RowsAffected()
	logger.DatabaseResult("DELETE", rows, err, "reservationID", id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}
