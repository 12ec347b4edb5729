package service

//go:generate mockgen -source=request.go -destination=mocks/mock_request.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/requestid"
	"github.com/shenikar/road_clearing_system/internal/resolver"
	"github.com/shenikar/road_clearing_system/internal/spatial"
	"github.com/shenikar/road_clearing_system/internal/webhook"
	"github.com/sirupsen/logrus"
)

var (
	ErrRequestNotFound    = errors.New("road clearing request not found")
	ErrDuplicateRequestID = errors.New("request id already exists")
	ErrInvalidRequest     = errors.New("invalid road clearing request")
)

// Максимальные длины полей, совпадают с VARCHAR в схеме
const (
	MaxReporterNameLen  = 100
	MaxContactNumberLen = 20
	MaxBarangayLen      = 100
	MaxStreetAddressLen = 255
)

// RequestRepository определяет контракт хранилища заявок
type RequestRepository interface {
	Create(ctx context.Context, req *models.RoadClearingRequest) error
	GetByRequestID(ctx context.Context, requestID string) (*models.RoadClearingRequest, error)
	// List возвращает заявки от новых к старым; limit <= 0 означает "все"
	List(ctx context.Context, limit, offset int) ([]*models.RoadClearingRequest, error)
	ListByCells(ctx context.Context, cells []string) ([]*models.RoadClearingRequest, error)
}

// AddressResolver дополняет адрес и координаты заявки
type AddressResolver interface {
	Resolve(ctx context.Context, in resolver.Location) resolver.Location
}

// RequestService определяет контракт бизнес-логики заявок
type RequestService interface {
	SubmitRequest(ctx context.Context, input models.RequestInput) (*models.RoadClearingRequest, error)
	GetRequest(ctx context.Context, requestID string) (*models.RoadClearingRequest, error)
	ListRequests(ctx context.Context, page, pageSize int) ([]*models.RoadClearingRequest, error)
	ListAllRequests(ctx context.Context) ([]*models.RoadClearingRequest, error)
	ListNearby(ctx context.Context, lat, lon float64, rings int) ([]*models.RoadClearingRequest, error)
}

type requestService struct {
	repo      RequestRepository
	resolver  AddressResolver
	publisher webhook.WebhookPublisher
	indexer   *spatial.Indexer
	ids       *requestid.Generator
	now       func() time.Time
	logger    *logrus.Logger
	cfg       *config.Config
}

func NewRequestService(repo RequestRepository, addressResolver AddressResolver, logger *logrus.Logger, cfg *config.Config, publisher webhook.WebhookPublisher) RequestService {
	return &requestService{
		repo:      repo,
		resolver:  addressResolver,
		publisher: publisher,
		indexer:   spatial.NewIndexer(cfg.H3Resolution),
		ids:       requestid.New(),
		now:       time.Now,
		logger:    logger,
		cfg:       cfg,
	}
}

// SubmitRequest дополняет адрес, присваивает идентификатор и сохраняет заявку.
// Ошибки геокодирования не прерывают подачу; ошибки хранилища возвращаются вызывающему.
func (s *requestService) SubmitRequest(ctx context.Context, input models.RequestInput) (*models.RoadClearingRequest, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "request",
		"method":   "SubmitRequest",
		"reporter": input.ReporterName,
	})
	log.Info("Attempting to submit a new road clearing request")

	reporter := strings.TrimSpace(input.ReporterName)
	if reporter == "" {
		return nil, fmt.Errorf("%w: reporter name is required", ErrInvalidRequest)
	}

	status := input.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.IsValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, status)
	}

	contact := strings.TrimSpace(input.ContactNumber)
	street := strings.TrimSpace(input.StreetAddress)
	barangay := strings.TrimSpace(input.Barangay)
	if err := validateInput(reporter, contact, barangay, street, input.Latitude, input.Longitude); err != nil {
		log.WithError(err).Warn("Rejected road clearing request")
		return nil, err
	}

	loc := s.resolver.Resolve(ctx, resolver.Location{
		Street:    street,
		Barangay:  barangay,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	})

	// Postgres хранит микросекунды
	now := s.now().UTC().Truncate(time.Microsecond)
	req := &models.RoadClearingRequest{
		RequestID:     s.ids.Next(),
		ReporterName:  reporter,
		ContactNumber: contact,
		Barangay:      truncateRunes(loc.Barangay, MaxBarangayLen),
		StreetAddress: truncateRunes(loc.Street, MaxStreetAddressLen),
		Description:   input.Description,
		Status:        status,
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		ReportedAt:    now,
		LastUpdated:   now,
	}

	if req.HasCoordinates() {
		cell, err := s.indexer.Cell(*req.Latitude, *req.Longitude)
		if err != nil {
			log.WithError(err).Warn("Failed to compute h3 cell, storing request without it")
		} else {
			req.H3Cell = cell
		}
	}

	if err := s.repo.Create(ctx, req); err != nil {
		log.WithError(err).Error("Failed to create request in repository")
		return nil, fmt.Errorf("service: could not create request: %w", err)
	}
	log = log.WithField("request_id", req.RequestID)
	log.WithField("geocoded", req.HasCoordinates()).Info("Request created successfully")

	event := webhook.RequestEvent{
		Type:      webhook.EventRequestCreated,
		Request:   req,
		Timestamp: now,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish request created event")
	}

	return req, nil
}

// GetRequest получает заявку по ее идентификатору
func (s *requestService) GetRequest(ctx context.Context, requestID string) (*models.RoadClearingRequest, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "request",
		"method":     "GetRequest",
		"request_id": requestID,
	})
	log.Info("Fetching request by ID")

	req, err := s.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		log.WithError(err).Warn("Failed to get request from repository")
		return nil, fmt.Errorf("service: could not get request: %w", err)
	}
	return req, nil
}

// ListRequests возвращает список заявок с пагинацией
func (s *requestService) ListRequests(ctx context.Context, page, pageSize int) ([]*models.RoadClearingRequest, error) {
	if page < 1 {
		page = 1
	}

	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	log := s.logger.WithFields(logrus.Fields{
		"service":   "request",
		"method":    "ListRequests",
		"page":      page,
		"page_size": pageSize,
	})
	log.Info("Listing requests")

	requests, err := s.repo.List(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		log.WithError(err).Error("Failed to list requests from repository")
		return nil, fmt.Errorf("service: could not list requests: %w", err)
	}

	log.WithField("count", len(requests)).Info("Requests listed successfully")
	return requests, nil
}

// ListAllRequests возвращает все заявки, новые первыми
func (s *requestService) ListAllRequests(ctx context.Context) ([]*models.RoadClearingRequest, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "request",
		"method":  "ListAllRequests",
	})

	requests, err := s.repo.List(ctx, 0, 0)
	if err != nil {
		log.WithError(err).Error("Failed to list requests from repository")
		return nil, fmt.Errorf("service: could not list requests: %w", err)
	}
	return requests, nil
}

// ListNearby находит заявки в H3-ячейках вокруг точки
func (s *requestService) ListNearby(ctx context.Context, lat, lon float64, rings int) ([]*models.RoadClearingRequest, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "request",
		"method":  "ListNearby",
		"lat":     lat,
		"lon":     lon,
		"rings":   rings,
	})

	cells, err := s.indexer.Neighborhood(lat, lon, rings)
	if err != nil {
		log.WithError(err).Warn("Invalid nearby query")
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	requests, err := s.repo.ListByCells(ctx, cells)
	if err != nil {
		log.WithError(err).Error("Failed to list nearby requests from repository")
		return nil, fmt.Errorf("service: could not list nearby requests: %w", err)
	}

	log.WithField("count", len(requests)).Info("Nearby requests listed successfully")
	return requests, nil
}

// validateInput проверяет длины полей и диапазоны координат
func validateInput(reporter, contact, barangay, street string, lat, lon *float64) error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"reporter name", reporter, MaxReporterNameLen},
		{"contact number", contact, MaxContactNumberLen},
		{"barangay", barangay, MaxBarangayLen},
		{"street address", street, MaxStreetAddressLen},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidRequest, f.name, f.max)
		}
	}

	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidRequest, *lat)
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidRequest, *lon)
	}
	return nil
}

// truncateRunes обрезает ответ геокодера до длины колонки
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
