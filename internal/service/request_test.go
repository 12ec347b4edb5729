package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/models"
	"github.com/shenikar/road_clearing_system/internal/requestid"
	"github.com/shenikar/road_clearing_system/internal/resolver"
	"github.com/shenikar/road_clearing_system/internal/service/mocks"
	"github.com/shenikar/road_clearing_system/internal/webhook"
	webhook_mocks "github.com/shenikar/road_clearing_system/internal/webhook/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var fixedNow = time.Date(2025, 7, 14, 9, 30, 5, 123456789, time.UTC)

// newTestRequestService — вспомогательная функция для создания инстанса сервиса с моками.
func newTestRequestService(t *testing.T) (*requestService, *mocks.MockRequestRepository, *mocks.MockAddressResolver, *webhook_mocks.MockWebhookPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockRequestRepository(ctrl)
	resolverMock := mocks.NewMockAddressResolver(ctrl)
	webhookMock := webhook_mocks.NewMockWebhookPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{H3Resolution: 9}

	svc := NewRequestService(repoMock, resolverMock, logger, cfg, webhookMock).(*requestService)
	svc.now = func() time.Time { return fixedNow }
	svc.ids = requestid.NewWithClock(svc.now)
	return svc, repoMock, resolverMock, webhookMock
}

func ptr(v float64) *float64 { return &v }

func TestSubmitRequest_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()
	input := models.RequestInput{
		ReporterName:  "  Juan dela Cruz ",
		ContactNumber: "09171234567",
		StreetAddress: "Ortigas Ave Ext",
		Description:   "Fallen tree blocking both lanes",
	}

	// Ожидания
	// 1. Резолвер получает адрес и возвращает координаты
	resolverMock.EXPECT().
		Resolve(ctx, resolver.Location{Street: "Ortigas Ave Ext"}).
		Return(resolver.Location{Street: "Ortigas Ave Ext", Barangay: "San Isidro", Latitude: ptr(14.5786), Longitude: ptr(121.1222)}).
		Times(1)

	// 2. Сохранение
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		Do(func(_ context.Context, req *models.RoadClearingRequest) {
			assert.Equal(t, "Juan dela Cruz", req.ReporterName)
			assert.Equal(t, "San Isidro", req.Barangay)
			assert.Equal(t, models.StatusPending, req.Status)
			assert.Equal(t, fixedNow.Truncate(time.Microsecond), req.ReportedAt)
			assert.Equal(t, req.ReportedAt, req.LastUpdated)
			assert.NotEmpty(t, req.H3Cell)
		}).Return(nil).Times(1)

	// 3. Публикация события
	webhookMock.EXPECT().
		Publish(ctx, gomock.Any()).
		Do(func(_ context.Context, event webhook.RequestEvent) {
			assert.Equal(t, webhook.EventRequestCreated, event.Type)
			require.NotNil(t, event.Request)
		}).Return(nil).Times(1)

	// Действие
	req, err := svc.SubmitRequest(ctx, input)

	// Проверки
	require.NoError(t, err)
	assert.Regexp(t, `^RC-20250714093005-[0-9a-f]{12}$`, req.RequestID)
	assert.Equal(t, 14.5786, *req.Latitude)
	assert.Equal(t, 121.1222, *req.Longitude)
	assert.True(t, req.CoordinatesPaired())
}

func TestSubmitRequest_GeocodingMissStillStored(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания: резолвер ничего не нашел
	resolverMock.EXPECT().
		Resolve(ctx, gomock.Any()).
		Return(resolver.Location{Street: "Unknown St"}).
		Times(1)
	repoMock.EXPECT().
		Create(ctx, gomock.Any()).
		Do(func(_ context.Context, req *models.RoadClearingRequest) {
			assert.Nil(t, req.Latitude)
			assert.Nil(t, req.Longitude)
			assert.Empty(t, req.H3Cell)
		}).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)

	// Действие
	req, err := svc.SubmitRequest(ctx, models.RequestInput{ReporterName: "Maria", StreetAddress: "Unknown St"})

	// Проверки
	require.NoError(t, err)
	assert.False(t, req.HasCoordinates())
	assert.True(t, req.CoordinatesPaired())
}

func TestSubmitRequest_StorageFailure(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания
	resolverMock.EXPECT().Resolve(ctx, gomock.Any()).Return(resolver.Location{}).Times(1)
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(fmt.Errorf("insert: %w", ErrDuplicateRequestID)).Times(1)
	// Событие не публикуется, если заявка не сохранена
	webhookMock.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(0)

	// Действие
	req, err := svc.SubmitRequest(ctx, models.RequestInput{ReporterName: "Maria"})

	// Проверки
	require.Error(t, err)
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrDuplicateRequestID)
	assert.ErrorContains(t, err, "could not create request")
}

func TestSubmitRequest_PublishFailureIgnored(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания
	resolverMock.EXPECT().Resolve(ctx, gomock.Any()).Return(resolver.Location{}).Times(1)
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("redis down")).Times(1)

	// Действие
	req, err := svc.SubmitRequest(ctx, models.RequestInput{ReporterName: "Maria", Status: models.StatusInProgress})

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, req.Status)
}

func TestSubmitRequest_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input models.RequestInput
	}{
		{name: "missing reporter", input: models.RequestInput{ReporterName: "   "}},
		{name: "unknown status", input: models.RequestInput{ReporterName: "Maria", Status: "Done"}},
		{name: "reporter too long", input: models.RequestInput{ReporterName: strings.Repeat("M", MaxReporterNameLen+1)}},
		{name: "contact too long", input: models.RequestInput{ReporterName: "Maria", ContactNumber: "091712345678901234567"}},
		{name: "barangay too long", input: models.RequestInput{ReporterName: "Maria", Barangay: strings.Repeat("b", MaxBarangayLen+1)}},
		{name: "street too long", input: models.RequestInput{ReporterName: "Maria", StreetAddress: strings.Repeat("s", MaxStreetAddressLen+1)}},
		{name: "latitude above range", input: models.RequestInput{ReporterName: "Maria", Latitude: ptr(95), Longitude: ptr(121.1)}},
		{name: "latitude below range", input: models.RequestInput{ReporterName: "Maria", Latitude: ptr(-90.5), Longitude: ptr(121.1)}},
		{name: "longitude out of range", input: models.RequestInput{ReporterName: "Maria", Latitude: ptr(14.5), Longitude: ptr(500)}},
		{name: "lone longitude out of range", input: models.RequestInput{ReporterName: "Maria", Longitude: ptr(-180.01)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repoMock, resolverMock, _ := newTestRequestService(t)

			// Ни резолвер, ни хранилище не вызываются
			resolverMock.EXPECT().Resolve(gomock.Any(), gomock.Any()).Times(0)
			repoMock.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

			_, err := svc.SubmitRequest(context.Background(), tt.input)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestSubmitRequest_AcceptsBoundaryValues(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()
	input := models.RequestInput{
		// Многобайтовые символы считаются по одному
		ReporterName:  strings.Repeat("ñ", MaxReporterNameLen),
		ContactNumber: strings.Repeat("9", MaxContactNumberLen),
		Latitude:      ptr(-90),
		Longitude:     ptr(180),
	}

	// Ожидания
	resolverMock.EXPECT().Resolve(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, in resolver.Location) resolver.Location { return in },
	).Times(1)
	repoMock.EXPECT().Create(ctx, gomock.Any()).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).AnyTimes()

	// Действие
	req, err := svc.SubmitRequest(ctx, input)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, input.ContactNumber, req.ContactNumber)
}

func TestSubmitRequest_TruncatesLongGeocodedAddress(t *testing.T) {
	// Подготовка
	svc, repoMock, resolverMock, webhookMock := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания: геокодер вернул адрес длиннее колонок
	resolverMock.EXPECT().Resolve(ctx, gomock.Any()).Return(resolver.Location{
		Street:    strings.Repeat("s", MaxStreetAddressLen+10),
		Barangay:  strings.Repeat("b", MaxBarangayLen+10),
		Latitude:  ptr(14.5786),
		Longitude: ptr(121.1222),
	}).Times(1)
	repoMock.EXPECT().Create(ctx, gomock.Any()).Do(func(_ context.Context, req *models.RoadClearingRequest) {
		assert.Len(t, req.StreetAddress, MaxStreetAddressLen)
		assert.Len(t, req.Barangay, MaxBarangayLen)
	}).Return(nil).Times(1)
	webhookMock.EXPECT().Publish(ctx, gomock.Any()).Return(nil).AnyTimes()

	// Действие
	_, err := svc.SubmitRequest(ctx, models.RequestInput{ReporterName: "Maria", Latitude: ptr(14.5786), Longitude: ptr(121.1222)})

	// Проверки
	require.NoError(t, err)
}

func TestGetRequest_Success(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestRequestService(t)
	ctx := context.Background()
	expected := &models.RoadClearingRequest{RequestID: "RC-20250714093005-0123456789ab", ReporterName: "Maria"}

	// Ожидания
	repoMock.EXPECT().GetByRequestID(ctx, expected.RequestID).Return(expected, nil).Times(1)

	// Действие
	req, err := svc.GetRequest(ctx, expected.RequestID)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, req)
}

func TestGetRequest_NotFound(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().GetByRequestID(ctx, "RC-missing").Return(nil, ErrRequestNotFound).Times(1)

	// Действие
	req, err := svc.GetRequest(ctx, "RC-missing")

	// Проверки
	require.Error(t, err)
	assert.Nil(t, req)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListRequests_Pagination(t *testing.T) {
	tests := []struct {
		name           string
		page, pageSize int
		limit, offset  int
	}{
		{name: "first page", page: 1, pageSize: 10, limit: 10, offset: 0},
		{name: "third page", page: 3, pageSize: 5, limit: 5, offset: 10},
		{name: "clamped", page: 0, pageSize: 500, limit: 20, offset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repoMock, _, _ := newTestRequestService(t)
			ctx := context.Background()
			expected := []*models.RoadClearingRequest{{RequestID: "RC-1"}, {RequestID: "RC-2"}}

			repoMock.EXPECT().List(ctx, tt.limit, tt.offset).Return(expected, nil).Times(1)

			requests, err := svc.ListRequests(ctx, tt.page, tt.pageSize)

			require.NoError(t, err)
			assert.Equal(t, expected, requests)
		})
	}
}

func TestListAllRequests(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestRequestService(t)
	ctx := context.Background()

	// Ожидания
	repoMock.EXPECT().List(ctx, 0, 0).Return(nil, errors.New("db down")).Times(1)

	// Действие
	_, err := svc.ListAllRequests(ctx)

	// Проверки
	require.Error(t, err)
	assert.ErrorContains(t, err, "could not list requests")
}

func TestListNearby(t *testing.T) {
	// Подготовка
	svc, repoMock, _, _ := newTestRequestService(t)
	ctx := context.Background()
	expected := []*models.RoadClearingRequest{{RequestID: "RC-1"}}

	// Ожидания: центр и первое кольцо - 7 ячеек
	repoMock.EXPECT().
		ListByCells(ctx, gomock.Len(7)).
		Return(expected, nil).
		Times(1)

	// Действие
	requests, err := svc.ListNearby(ctx, 14.5786, 121.1222, 1)

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, requests)
}

func TestListNearby_InvalidRings(t *testing.T) {
	svc, repoMock, _, _ := newTestRequestService(t)

	repoMock.EXPECT().ListByCells(gomock.Any(), gomock.Any()).Times(0)

	_, err := svc.ListNearby(context.Background(), 14.5786, 121.1222, 99)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
