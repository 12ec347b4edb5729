package resolver

import (
	"context"
	"fmt"

	"github.com/shenikar/road_clearing_system/internal/config"
	"github.com/shenikar/road_clearing_system/internal/geocoding"
	"github.com/sirupsen/logrus"
)

// Location - адрес и координаты заявки. Пустая строка и nil означают "не задано".
type Location struct {
	Street    string
	Barangay  string
	Latitude  *float64
	Longitude *float64
}

func (l Location) hasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

func (l Location) hasAddress() bool {
	return l.Street != "" && l.Barangay != ""
}

// AddressResolver дополняет адрес координатами и наоборот
type AddressResolver struct {
	geocoder     geocoding.Geocoder
	logger       *logrus.Logger
	municipality string
	province     string
	country      string
}

// NewAddressResolver создает резолвер с фиксированным суффиксом адреса из конфигурации
func NewAddressResolver(geocoder geocoding.Geocoder, logger *logrus.Logger, cfg *config.Config) *AddressResolver {
	return &AddressResolver{
		geocoder:     geocoder,
		logger:       logger,
		municipality: cfg.GeocodeMunicipality,
		province:     cfg.GeocodeProvince,
		country:      cfg.GeocodeCountry,
	}
}

// Resolve заполняет недостающие поля. Сначала обратное геокодирование (если есть обе координаты
// и не хватает улицы или барангая), затем прямое (если координат все еще нет).
// Заданные пользователем значения не перезаписываются. Ошибки геокодера не возвращаются:
// результат всегда best effort.
func (r *AddressResolver) Resolve(ctx context.Context, in Location) Location {
	out := in
	log := r.logger.WithFields(logrus.Fields{
		"service":  "resolver",
		"street":   in.Street,
		"barangay": in.Barangay,
	})

	if out.hasCoordinates() && !out.hasAddress() {
		addr, err := r.geocoder.Reverse(ctx, *out.Latitude, *out.Longitude)
		if err != nil {
			log.WithError(err).WithField("kind", geocoding.KindOf(err)).Warn("Reverse geocoding failed")
		} else {
			if out.Street == "" {
				out.Street = addr.Street
			}
			if out.Barangay == "" {
				out.Barangay = addr.Barangay
			}
		}
	}

	if !out.hasCoordinates() {
		query := r.Query(out.Street, out.Barangay)
		coords, err := r.geocoder.Forward(ctx, query)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"kind":  geocoding.KindOf(err),
				"query": query,
			}).Warn("Forward geocoding failed")
			// Одна координата без пары не сохраняется
			out.Latitude, out.Longitude = nil, nil
		} else {
			lat, lon := coords.Latitude, coords.Longitude
			out.Latitude, out.Longitude = &lat, &lon
		}
	}

	return out
}

// Query строит составную адресную строку; пустые компоненты сохраняют запятые
func (r *AddressResolver) Query(street, barangay string) string {
	return fmt.Sprintf("%s, %s, %s, %s, %s", street, barangay, r.municipality, r.province, r.country)
}
