package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	forwardKeyPrefix = "geocode:forward:"
	reverseKeyPrefix = "geocode:reverse:"
)

// CachedGeocoder кеширует успешные ответы геокодера в Redis.
// Промахи не кешируются; ошибки Redis не мешают обращению к провайдеру.
type CachedGeocoder struct {
	inner       Geocoder
	redisClient *redis.Client
	ttl         time.Duration
	logger      *logrus.Logger
}

// NewCachedGeocoder оборачивает геокодер кешем
func NewCachedGeocoder(inner Geocoder, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:       inner,
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func (g *CachedGeocoder) Forward(ctx context.Context, query string) (Coordinates, error) {
	key := forwardKeyPrefix + foldQuery(query)

	var cached Coordinates
	if g.load(ctx, key, &cached) {
		return cached, nil
	}

	coords, err := g.inner.Forward(ctx, query)
	if err != nil {
		return Coordinates{}, err
	}
	g.store(ctx, key, coords)
	return coords, nil
}

func (g *CachedGeocoder) Reverse(ctx context.Context, lat, lon float64) (Address, error) {
	// ~1 м точности достаточно, чтобы соседние клики по карте попадали в один ключ
	key := fmt.Sprintf("%s%.5f,%.5f", reverseKeyPrefix, lat, lon)

	var cached Address
	if g.load(ctx, key, &cached) {
		return cached, nil
	}

	addr, err := g.inner.Reverse(ctx, lat, lon)
	if err != nil {
		return Address{}, err
	}
	g.store(ctx, key, addr)
	return addr, nil
}

func (g *CachedGeocoder) load(ctx context.Context, key string, out any) bool {
	val, err := g.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.WithError(err).WithField("key", key).Warn("Failed to read geocode cache")
		}
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Failed to unmarshal geocode cache entry")
		return false
	}
	return true
}

func (g *CachedGeocoder) store(ctx context.Context, key string, value any) {
	val, err := json.Marshal(value)
	if err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Failed to marshal geocode cache entry")
		return
	}
	if err := g.redisClient.Set(ctx, key, val, g.ttl).Err(); err != nil {
		g.logger.WithError(err).WithField("key", key).Warn("Failed to write geocode cache")
	}
}

// foldQuery приводит адрес к нижнему регистру, убирает диакритику и лишние пробелы
func foldQuery(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.ToLower(s),
	)
	return strings.Join(strings.Fields(s), " ")
}
