package resolver

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/geocoding"
	"github.com/shenikar/road_clearing_system/internal/geocoding/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

// newTestResolver — резолвер поверх мок-геокодера
func newTestResolver(t *testing.T) (*AddressResolver, *mocks.MockGeocoder) {
	ctrl := gomock.NewController(t)
	geocoderMock := mocks.NewMockGeocoder(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		GeocodeMunicipality: "Cainta",
		GeocodeProvince:     "Rizal",
		GeocodeCountry:      "Philippines",
	}
	return NewAddressResolver(geocoderMock, logger, cfg), geocoderMock
}

func ptr(v float64) *float64 { return &v }

var (
	networkFailure = &geocoding.Error{Op: "forward", Kind: geocoding.KindNetwork, Err: assert.AnError}
	noResult       = &geocoding.Error{Op: "reverse", Kind: geocoding.KindNoResult, Err: geocoding.ErrNoResult}
)

func TestResolve_PassThrough(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	in := Location{Street: "A", Barangay: "B", Latitude: ptr(1.0), Longitude: ptr(2.0)}

	geocoderMock.EXPECT().Reverse(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	geocoderMock.EXPECT().Forward(gomock.Any(), gomock.Any()).Times(0)

	out := r.Resolve(context.Background(), in)

	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ReverseFillsEmptyFields(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().
		Reverse(ctx, 1.0, 2.0).
		Return(geocoding.Address{Street: "Elm St", Barangay: "Brgy1"}, nil).
		Times(1)

	out := r.Resolve(ctx, Location{Latitude: ptr(1.0), Longitude: ptr(2.0)})

	want := Location{Street: "Elm St", Barangay: "Brgy1", Latitude: ptr(1.0), Longitude: ptr(2.0)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_ReverseNeverOverwrites(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().
		Reverse(ctx, 1.0, 2.0).
		Return(geocoding.Address{Street: "Elm St", Barangay: "Brgy1"}, nil).
		Times(1)

	out := r.Resolve(ctx, Location{Street: "Oak St", Latitude: ptr(1.0), Longitude: ptr(2.0)})

	assert.Equal(t, "Oak St", out.Street)
	assert.Equal(t, "Brgy1", out.Barangay)
	assert.Equal(t, 1.0, *out.Latitude)
	assert.Equal(t, 2.0, *out.Longitude)
}

func TestResolve_ForwardFillsAbsentCoordinates(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().Reverse(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	geocoderMock.EXPECT().
		Forward(ctx, "Main St, Brgy2, Cainta, Rizal, Philippines").
		Return(geocoding.Coordinates{Latitude: 14.5, Longitude: 121.1}, nil).
		Times(1)

	out := r.Resolve(ctx, Location{Street: "Main St", Barangay: "Brgy2"})

	want := Location{Street: "Main St", Barangay: "Brgy2", Latitude: ptr(14.5), Longitude: ptr(121.1)}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_NoForwardWhenCoordinatesPresent(t *testing.T) {
	r, geocoderMock := newTestResolver(t)

	geocoderMock.EXPECT().Forward(gomock.Any(), gomock.Any()).Times(0)

	out := r.Resolve(context.Background(), Location{Street: "Main St", Barangay: "Brgy2", Latitude: ptr(5.0), Longitude: ptr(6.0)})

	assert.Equal(t, 5.0, *out.Latitude)
	assert.Equal(t, 6.0, *out.Longitude)
}

func TestResolve_NoForwardAfterPartialReverse(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	// Улица не найдена, но координаты уже есть: прямой запрос не нужен
	geocoderMock.EXPECT().
		Reverse(ctx, 14.6, 121.2).
		Return(geocoding.Address{Barangay: "San Isidro"}, nil).
		Times(1)
	geocoderMock.EXPECT().Forward(gomock.Any(), gomock.Any()).Times(0)

	out := r.Resolve(ctx, Location{Latitude: ptr(14.6), Longitude: ptr(121.2)})

	assert.Empty(t, out.Street)
	assert.Equal(t, "San Isidro", out.Barangay)
}

func TestResolve_SingleCoordinateSkipsReverse(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	// Только одна координата: обратное геокодирование невозможно, сразу прямое
	geocoderMock.EXPECT().
		Forward(ctx, "Oak St, , Cainta, Rizal, Philippines").
		Return(geocoding.Coordinates{Latitude: 14.6, Longitude: 121.2}, nil).
		Times(1)
	geocoderMock.EXPECT().Reverse(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	out := r.Resolve(ctx, Location{Street: "Oak St", Latitude: ptr(9.0)})

	assert.Equal(t, 14.6, *out.Latitude)
	assert.Equal(t, 121.2, *out.Longitude)
}

func TestResolve_AllFailuresBestEffort(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().Forward(ctx, gomock.Any()).Return(geocoding.Coordinates{}, networkFailure).Times(1)

	out := r.Resolve(ctx, Location{Street: "Main St"})

	assert.Equal(t, "Main St", out.Street)
	assert.Empty(t, out.Barangay)
	assert.Nil(t, out.Latitude)
	assert.Nil(t, out.Longitude)
}

func TestResolve_ReverseFailureKeepsCoordinates(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().Reverse(ctx, 1.0, 2.0).Return(geocoding.Address{}, noResult).Times(1)
	geocoderMock.EXPECT().Forward(gomock.Any(), gomock.Any()).Times(0)

	out := r.Resolve(ctx, Location{Barangay: "Brgy1", Latitude: ptr(1.0), Longitude: ptr(2.0)})

	assert.Empty(t, out.Street)
	assert.Equal(t, "Brgy1", out.Barangay)
	assert.Equal(t, 1.0, *out.Latitude)
	assert.Equal(t, 2.0, *out.Longitude)
}

func TestResolve_UnpairedCoordinateDroppedOnMiss(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().Forward(ctx, gomock.Any()).Return(geocoding.Coordinates{}, noResult).Times(1)

	out := r.Resolve(ctx, Location{Street: "Main St", Longitude: ptr(121.0)})

	assert.Nil(t, out.Latitude)
	assert.Nil(t, out.Longitude)
}

func TestResolve_EmptyInputUsesSuffixOnly(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()

	geocoderMock.EXPECT().
		Forward(ctx, ", , Cainta, Rizal, Philippines").
		Return(geocoding.Coordinates{Latitude: 14.58, Longitude: 121.12}, nil).
		Times(1)

	out := r.Resolve(ctx, Location{})

	assert.Empty(t, out.Street)
	assert.Empty(t, out.Barangay)
	assert.Equal(t, 14.58, *out.Latitude)
	assert.Equal(t, 121.12, *out.Longitude)
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	r, geocoderMock := newTestResolver(t)
	ctx := context.Background()
	in := Location{Street: "Main St", Barangay: "Brgy2"}

	geocoderMock.EXPECT().Forward(ctx, gomock.Any()).Return(geocoding.Coordinates{Latitude: 1, Longitude: 2}, nil)

	_ = r.Resolve(ctx, in)

	assert.Nil(t, in.Latitude)
	assert.Nil(t, in.Longitude)
}

func TestQuery(t *testing.T) {
	r, _ := newTestResolver(t)

	assert.Equal(t, "Main St, Brgy2, Cainta, Rizal, Philippines", r.Query("Main St", "Brgy2"))
	assert.Equal(t, ", , Cainta, Rizal, Philippines", r.Query("", ""))
}
