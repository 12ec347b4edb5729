package models

import (
	"time"
)

// Статусы заявки на расчистку дороги
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// Statuses перечисляет допустимые значения статуса
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted, StatusCancelled}

// IsValidStatus проверяет, что статус входит в допустимый набор
func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// RoadClearingRequest - заявка жителя о препятствии на дороге
type RoadClearingRequest struct {
	ID            int64     `json:"-"`
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

// HasCoordinates сообщает, заданы ли обе координаты
func (r *RoadClearingRequest) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// CoordinatesPaired проверяет инвариант: широта и долгота либо обе заданы, либо обе пусты
func (r *RoadClearingRequest) CoordinatesPaired() bool {
	return (r.Latitude == nil) == (r.Longitude == nil)
}

// RequestInput - данные, введенные жителем. Любое из адресных полей и координат может отсутствовать.
type RequestInput struct {
	ReporterName  string
	ContactNumber string
	Barangay      string
	StreetAddress string
	Description   string
	Status        string
	Latitude      *float64
	Longitude     *float64
}
