package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/service"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRequestRepository - хранилище заявок в локальном файле SQLite
type SQLiteRequestRepository struct {
	db *sql.DB
}

// OpenSQLite открывает (и при необходимости создает) базу и схему.
// Путь ":memory:" дает базу в памяти.
func OpenSQLite(path string) (*SQLiteRequestRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite сериализует запись; одно соединение также сохраняет базу ":memory:"
	db.SetMaxOpenConns(1)

	r := &SQLiteRequestRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRequestRepository) Close() error { return r.db.Close() }

func (r *SQLiteRequestRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS road_clearing_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL UNIQUE,
			reporter_name TEXT NOT NULL,
			contact_number TEXT,
			barangay TEXT NOT NULL DEFAULT '',
			street_address TEXT NOT NULL DEFAULT '',
			description TEXT,
			status TEXT NOT NULL DEFAULT 'Pending',
			latitude REAL,
			longitude REAL,
			h3_cell TEXT,
			reported_at TIMESTAMP NOT NULL,
			last_updated TIMESTAMP NOT NULL,
			CHECK ((latitude IS NULL) = (longitude IS NULL))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_reported_at ON road_clearing_requests(reported_at);`,
		`CREATE INDEX IF NOT EXISTS idx_requests_h3_cell ON road_clearing_requests(h3_cell);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrating sqlite schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRequestRepository) Create(ctx context.Context, req *models.RoadClearingRequest) error {
	if err := validateForInsert(req); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO road_clearing_requests (
			request_id, reporter_name, contact_number, barangay, street_address,
			description, status, latitude, longitude, h3_cell, reported_at, last_updated
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
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
		req.ReportedAt.UTC(),
		req.LastUpdated.UTC(),
	)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("%w: %s", service.ErrDuplicateRequestID, req.RequestID)
		}
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted id: %w", err)
	}
	req.ID = id
	return nil
}

func (r *SQLiteRequestRepository) GetByRequestID(ctx context.Context, requestID string) (*models.RoadClearingRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+selectColumns+`
		FROM road_clearing_requests
		WHERE request_id = ?;`, requestID)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get request by id: %w", err)
	}
	return req, nil
}

func (r *SQLiteRequestRepository) List(ctx context.Context, limit, offset int) ([]*models.RoadClearingRequest, error) {
	query := `SELECT` + selectColumns + `
		FROM road_clearing_requests
		ORDER BY reported_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return collectSQLRequests(rows)
}

func (r *SQLiteRequestRepository) ListByCells(ctx context.Context, cells []string) ([]*models.RoadClearingRequest, error) {
	if len(cells) == 0 {
		return []*models.RoadClearingRequest{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(cells)), ",")
	args := make([]any, len(cells))
	for i, c := range cells {
		args[i] = c
	}

	rows, err := r.db.QueryContext(ctx, `SELECT`+selectColumns+`
		FROM road_clearing_requests
		WHERE h3_cell IN (`+placeholders+`)
		ORDER BY reported_at DESC, id DESC;`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests by cells: %w", err)
	}
	return collectSQLRequests(rows)
}

func collectSQLRequests(rows *sql.Rows) ([]*models.RoadClearingRequest, error) {
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
