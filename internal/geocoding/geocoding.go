// Package geocoding resolves free-text addresses into coordinates and back.
package geocoding

//go:generate mockgen -source=geocoding.go -destination=mocks/mock_geocoding.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
)

// Kind классифицирует неудачный запрос к геокодеру
type Kind string

const (
	// KindNetwork - таймаут, ошибка соединения или ответ не 2xx
	KindNetwork Kind = "network"
	// KindParse - ответ провайдера неожиданной формы
	KindParse Kind = "parse"
	// KindNoResult - провайдер ответил, но ничего не нашел
	KindNoResult Kind = "no_result"
)

// ErrNoResult возвращается, когда провайдер не нашел совпадений
var ErrNoResult = errors.New("no matching result")

// Error - ошибка геокодирования с указанием операции и вида сбоя
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("geocoding %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает вид сбоя; для ошибок не из этого пакета считается сетевым
func KindOf(err error) Kind {
	var gErr *Error
	if errors.As(err, &gErr) {
		return gErr.Kind
	}
	return KindNetwork
}

// Coordinates - точка в WGS84
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Address - улица и барангай, полученные обратным геокодированием
type Address struct {
	Street   string `json:"street"`
	Barangay string `json:"barangay"`
}

// Geocoder определяет контракт прямого и обратного геокодирования
type Geocoder interface {
	Forward(ctx context.Context, query string) (Coordinates, error)
	Reverse(ctx context.Context, lat, lon float64) (Address, error)
}
