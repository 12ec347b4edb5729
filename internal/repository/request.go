package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/service"
)

const selectColumns = `
	id,
	request_id,
	reporter_name,
	contact_number,
	barangay,
	street_address,
	description,
	status,
	latitude,
	longitude,
	h3_cell,
	reported_at,
	last_updated`

// DB - часть *pgxpool.Pool, которой пользуется репозиторий
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type RequestRepository struct {
	db DB
}

func NewRequestRepository(db DB) service.RequestRepository {
	return &RequestRepository{
		db: db,
	}
}

// Create сохраняет новую заявку. reported_at и last_updated пишутся явно из модели.
func (r *RequestRepository) Create(ctx context.Context, req *models.RoadClearingRequest) error {
	if err := validateForInsert(req); err != nil {
		return err
	}

	query := `
		INSERT INTO road_clearing_requests (
			request_id, reporter_name, contact_number, barangay, street_address,
			description, status, latitude, longitude, h3_cell, reported_at, last_updated
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id;
	`
	err := r.db.QueryRow(ctx, query,
		req.RequestID,
		req.ReporterName,
		nullString(req.ContactNumber),
		req.Barangay,
		req.StreetAddress,
		nullString(req.Description),
		req.Status,
		req.Latitude,
		req.Longitude,
		nullString(req.H3Cell),
		req.ReportedAt,
		req.LastUpdated,
	).Scan(&req.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", service.ErrDuplicateRequestID, req.RequestID)
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetByRequestID возвращает заявку по ее публичному идентификатору
func (r *RequestRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RoadClearingRequest, error) {
	query := `SELECT` + selectColumns + `
		FROM road_clearing_requests
		WHERE request_id = $1;
	`
	req, err := scanRequest(r.db.QueryRow(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get request by id: %w", err)
	}
	return req, nil
}

// List возвращает заявки от новых к старым
func (r *RequestRepository) List(ctx context.Context, limit, offset int) ([]*models.RoadClearingRequest, error) {
	query := `SELECT` + selectColumns + `
		FROM road_clearing_requests
		ORDER BY reported_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return collectRequests(rows)
}

// ListByCells возвращает заявки, попавшие в любую из H3-ячеек
func (r *RequestRepository) ListByCells(ctx context.Context, cells []string) ([]*models.RoadClearingRequest, error) {
	if len(cells) == 0 {
		return []*models.RoadClearingRequest{}, nil
	}

	query := `SELECT` + selectColumns + `
		FROM road_clearing_requests
		WHERE h3_cell = ANY($1)
		ORDER BY reported_at DESC, id DESC;
	`
	rows, err := r.db.Query(ctx, query, cells)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests by cells: %w", err)
	}
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]*models.RoadClearingRequest, error) {
	defer rows.Close()

	requests := make([]*models.RoadClearingRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return requests, nil
}
