package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shenikar/road_clearing_system/internal/config"
	"golang.org/x/time/rate"
)

const (
	opForward = "forward"
	opReverse = "reverse"
)

// NominatimClient обращается к публичному API OpenStreetMap Nominatim
type NominatimClient struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewNominatimClient создает клиент по настройкам приложения
func NewNominatimClient(cfg *config.Config) *NominatimClient {
	limit := rate.Limit(cfg.GeocodeRateLimit)
	return &NominatimClient{
		baseURL:    strings.TrimRight(cfg.NominatimURL, "/"),
		userAgent:  cfg.NominatimUserAgent,
		timeout:    cfg.GeocodeTimeout,
		httpClient: &http.Client{Timeout: cfg.GeocodeTimeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

type reverseResult struct {
	Address *struct {
		Road          string `json:"road"`
		Pedestrian    string `json:"pedestrian"`
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
	} `json:"address"`
}

// Forward ищет координаты первого совпадения для адресной строки
func (c *NominatimClient) Forward(ctx context.Context, query string) (Coordinates, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, opForward, "/search", params, &results); err != nil {
		return Coordinates{}, err
	}
	if len(results) == 0 {
		return Coordinates{}, &Error{Op: opForward, Kind: KindNoResult, Err: ErrNoResult}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coordinates{}, &Error{Op: opForward, Kind: KindParse, Err: fmt.Errorf("invalid lat %q: %w", results[0].Lat, err)}
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coordinates{}, &Error{Op: opForward, Kind: KindParse, Err: fmt.Errorf("invalid lon %q: %w", results[0].Lon, err)}
	}
	return Coordinates{Latitude: lat, Longitude: lon}, nil
}

// Reverse определяет улицу и барангай по координатам.
// Улица берется из "road", затем "pedestrian"; барангай из "suburb", затем "neighbourhood".
func (c *NominatimClient) Reverse(ctx context.Context, lat, lon float64) (Address, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("format", "json")

	var result reverseResult
	if err := c.get(ctx, opReverse, "/reverse", params, &result); err != nil {
		return Address{}, err
	}
	if result.Address == nil {
		return Address{}, &Error{Op: opReverse, Kind: KindNoResult, Err: ErrNoResult}
	}

	return Address{
		Street:   firstNonEmpty(result.Address.Road, result.Address.Pedestrian),
		Barangay: firstNonEmpty(result.Address.Suburb, result.Address.Neighbourhood),
	}, nil
}

func (c *NominatimClient) get(ctx context.Context, op, path string, params url.Values, out any) error {
	// Начатый запрос завершается или упирается в таймаут, отмена вызывающего не прерывает его
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	// Политика Nominatim: не более одного запроса в секунду
	if err := c.limiter.Wait(ctx); err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("nominatim returned status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Kind: KindParse, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
