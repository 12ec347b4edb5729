package geocoding_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/road_clearing_system/internal/geocoding"
	"github.com/shenikar/road_clearing_system/internal/geocoding/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newUnreachableCache возвращает кеш поверх Redis, к которому нельзя подключиться
func newUnreachableCache(t *testing.T) (*geocoding.CachedGeocoder, *mocks.MockGeocoder) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockGeocoder(ctrl)

	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return geocoding.NewCachedGeocoder(inner, rdb, time.Hour, logger), inner
}

func TestCachedGeocoder_ForwardFallsThroughWhenRedisDown(t *testing.T) {
	cache, inner := newUnreachableCache(t)
	ctx := context.Background()
	expected := geocoding.Coordinates{Latitude: 14.5, Longitude: 121.1}

	inner.EXPECT().Forward(ctx, "Main St").Return(expected, nil).Times(2)

	for i := 0; i < 2; i++ {
		coords, err := cache.Forward(ctx, "Main St")
		require.NoError(t, err)
		assert.Equal(t, expected, coords)
	}
}

func TestCachedGeocoder_ReversePropagatesMiss(t *testing.T) {
	cache, inner := newUnreachableCache(t)
	ctx := context.Background()
	miss := &geocoding.Error{Op: "reverse", Kind: geocoding.KindNoResult, Err: geocoding.ErrNoResult}

	inner.EXPECT().Reverse(ctx, 1.0, 2.0).Return(geocoding.Address{}, miss).Times(1)

	addr, err := cache.Reverse(ctx, 1.0, 2.0)

	require.Error(t, err)
	assert.Equal(t, geocoding.KindNoResult, geocoding.KindOf(err))
	assert.Equal(t, geocoding.Address{}, addr)
}

// newTestCache возвращает кеш поверх Redis в памяти процесса
func newTestCache(t *testing.T) (*geocoding.CachedGeocoder, *mocks.MockGeocoder, *miniredis.Miniredis) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockGeocoder(ctrl)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	return geocoding.NewCachedGeocoder(inner, rdb, time.Hour, logger), inner, mr
}

func TestCachedGeocoder_ForwardHitSkipsProvider(t *testing.T) {
	// Подготовка
	cache, inner, mr := newTestCache(t)
	ctx := context.Background()
	expected := geocoding.Coordinates{Latitude: 14.5786, Longitude: 121.1222}

	// Ожидания: провайдер вызывается только один раз
	inner.EXPECT().Forward(ctx, "Ortigas Ave Ext, San Isidro").Return(expected, nil).Times(1)

	// Действие
	first, err := cache.Forward(ctx, "Ortigas Ave Ext, San Isidro")
	require.NoError(t, err)
	// Регистр и лишние пробелы не меняют ключ
	second, err := cache.Forward(ctx, "  ORTIGAS Ave   Ext, San Isidro ")
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)
	assert.True(t, mr.Exists("geocode:forward:ortigas ave ext, san isidro"))
	assert.Equal(t, time.Hour, mr.TTL("geocode:forward:ortigas ave ext, san isidro"))
}

func TestCachedGeocoder_ForwardMissNotCached(t *testing.T) {
	// Подготовка
	cache, inner, mr := newTestCache(t)
	ctx := context.Background()
	miss := &geocoding.Error{Op: "forward", Kind: geocoding.KindNoResult, Err: geocoding.ErrNoResult}
	expected := geocoding.Coordinates{Latitude: 14.58, Longitude: 121.12}

	// Ожидания: промах не кешируется, поэтому второй вызов снова идет к провайдеру
	gomock.InOrder(
		inner.EXPECT().Forward(ctx, "Unknown St").Return(geocoding.Coordinates{}, miss).Times(1),
		inner.EXPECT().Forward(ctx, "Unknown St").Return(expected, nil).Times(1),
	)

	// Действие
	_, err := cache.Forward(ctx, "Unknown St")
	require.Error(t, err)
	assert.False(t, mr.Exists("geocode:forward:unknown st"))

	coords, err := cache.Forward(ctx, "Unknown St")

	// Проверки
	require.NoError(t, err)
	assert.Equal(t, expected, coords)
	assert.True(t, mr.Exists("geocode:forward:unknown st"))
}

func TestCachedGeocoder_ReverseNearbyPointsShareKey(t *testing.T) {
	// Подготовка
	cache, inner, mr := newTestCache(t)
	ctx := context.Background()
	expected := geocoding.Address{Street: "Ortigas Avenue Extension", Barangay: "San Isidro"}

	// Ожидания
	inner.EXPECT().Reverse(ctx, 14.578601, 121.1222).Return(expected, nil).Times(1)

	// Действие
	first, err := cache.Reverse(ctx, 14.578601, 121.1222)
	require.NoError(t, err)
	second, err := cache.Reverse(ctx, 14.5786012, 121.1222004)
	require.NoError(t, err)

	// Проверки
	assert.Equal(t, expected, first)
	assert.Equal(t, expected, second)
	assert.True(t, mr.Exists("geocode:reverse:14.57860,121.12220"))
}

func TestCachedGeocoder_ReverseDistantPointsMissCache(t *testing.T) {
	cache, inner, _ := newTestCache(t)
	ctx := context.Background()

	inner.EXPECT().Reverse(ctx, 14.5786, 121.1222).Return(geocoding.Address{Street: "A"}, nil).Times(1)
	inner.EXPECT().Reverse(ctx, 14.5796, 121.1222).Return(geocoding.Address{Street: "B"}, nil).Times(1)

	a, err := cache.Reverse(ctx, 14.5786, 121.1222)
	require.NoError(t, err)
	b, err := cache.Reverse(ctx, 14.5796, 121.1222)
	require.NoError(t, err)

	assert.Equal(t, "A", a.Street)
	assert.Equal(t, "B", b.Street)
}
