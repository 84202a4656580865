package postgres

import (
	"context"
	"database/sql"
	"errors"

	"camrent-backend/internal/domain"
	"camrent-backend/internal/logger"
	"camrent-backend/internal/repository"
)

const resourceColumns = `id, name, category, daily_rate, total_units, cached_available, status, description, specifications, version`

type resourceRepository struct {
	db DBTX
}

func NewResourceRepository(db DBTX) repository.ResourceRepository {
	return &resourceRepository{db: db}
}

func scanResource(row interface{ Scan(dest ...any) error }) (*domain.Resource, error) {
	res := &domain.Resource{}
	err := row.Scan(&res.ID, &res.Name, &res.Category, &res.DailyRate, &res.TotalUnits, &res.CachedAvailable,
		&res.Status, &res.Description, &res.Specifications, &res.Version)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *resourceRepository) Create(ctx context.Context, res *domain.Resource) error {
	logger.EnterMethod("resourceRepository.Create", "name", res.Name, "totalUnits", res.TotalUnits)

	query := `INSERT INTO resources (name, category, daily_rate, total_units, cached_available, status, description, specifications)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, version`
	logger.DatabaseCall("INSERT", "resources", "name", res.Name)
	err := r.db.QueryRowContext(ctx, query, res.Name, res.Category, res.DailyRate, res.TotalUnits,
		res.CachedAvailable, res.Status, res.Description, res.Specifications).Scan(&res.ID, &res.Version)
	logger.DatabaseResult("INSERT", 1, err, "resourceID", res.ID)

	if err != nil {
		logger.ExitMethodWithError("resourceRepository.Create", err, "name", res.Name)
		return err
	}
	logger.ExitMethod("resourceRepository.Create", "resourceID", res.ID)
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id int32) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return res, err
}

func (r *resourceRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1 FOR UPDATE`
	logger.DatabaseCall("SELECT FOR UPDATE", "resources", "resourceID", id)
	res, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return res, err
}

func (r *resourceRepository) List(ctx context.Context) ([]domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []domain.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, *res)
	}
	return resources, rows.Err()
}

func (r *resourceRepository) UpdateAvailability(ctx context.Context, id int32, expectedVersion int64, available int) (int64, error) {
	logger.EnterMethod("resourceRepository.UpdateAvailability", "resourceID", id, "version", expectedVersion, "available", available)

	query := `UPDATE resources SET cached_available = $1, version = version + 1
	          WHERE id = $2 AND version = $3 RETURNING version`
	logger.DatabaseCall("UPDATE", "resources", "resourceID", id)
	var version int64
	err := r.db.QueryRowContext(ctx, query, available, id, expectedVersion).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		err = repository.ErrVersionConflict
	}
	logger.DatabaseResult("UPDATE", 1, err, "resourceID", id)

	if err != nil {
		logger.ExitMethodWithError("resourceRepository.UpdateAvailability", err, "resourceID", id)
		return 0, err
	}
	logger.ExitMethod("resourceRepository.UpdateAvailability", "resourceID", id, "version", version)
	return version, nil
}
