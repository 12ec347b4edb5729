package v1

import (
	"time"
)

// CreateRequestRequest DTO для подачи заявки на расчистку дороги
// @Description DTO для подачи заявки на расчистку дороги
type CreateRequestRequest struct {
	ReporterName  string   `json:"reporter_name" validate:"required,max=100"`
	ContactNumber string   `json:"contact_number,omitempty" validate:"max=20"`
	Barangay      string   `json:"barangay,omitempty" validate:"max=100"`
	StreetAddress string   `json:"street_address,omitempty" validate:"max=255"`
	Description   string   `json:"description,omitempty"`
	Status        string   `json:"status,omitempty" validate:"omitempty,request_status"`
	Latitude      *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// RequestResponse DTO для ответа с информацией о заявке
// @Description DTO для ответа с информацией о заявке
type RequestResponse struct {
	RequestID     string    `json:"request_id"`
	ReporterName  string    `json:"reporter_name"`
	ContactNumber string    `json:"contact_number,omitempty"`
	Barangay      string    `json:"barangay"`
	StreetAddress string    `json:"street_address"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	Latitude      *float64  `json:"latitude"`
	Longitude     *float64  `json:"longitude"`
	H3Cell        string    `json:"h3_cell,omitempty"`
	ReportedAt    time.Time `json:"reported_at"`
	LastUpdated   time.Time `json:"last_updated"`
}
