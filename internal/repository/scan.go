package repository

import (
	"fmt"

	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/service"
)

// rowScanner покрывает pgx.Row, pgx.Rows, *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.RoadClearingRequest, error) {
	req := &models.RoadClearingRequest{}
	var contact, description, cell *string

	err := row.Scan(
		&req.ID,
		&req.RequestID,
		&req.ReporterName,
		&contact,
		&req.Barangay,
		&req.StreetAddress,
		&description,
		&req.Status,
		&req.Latitude,
		&req.Longitude,
		&cell,
		&req.ReportedAt,
		&req.LastUpdated,
	)
	if err != nil {
		return nil, err
	}

	req.ContactNumber = derefString(contact)
	req.Description = derefString(description)
	req.H3Cell = derefString(cell)
	return req, nil
}

func validateForInsert(req *models.RoadClearingRequest) error {
	if req.RequestID == "" {
		return fmt.Errorf("%w: request id is empty", service.ErrInvalidRequest)
	}
	if !req.CoordinatesPaired() {
		return fmt.Errorf("%w: latitude and longitude must be set together", service.ErrInvalidRequest)
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
