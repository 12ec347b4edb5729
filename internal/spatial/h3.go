// Package spatial indexes request coordinates into H3 cells.
package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// MaxRings ограничивает радиус поиска соседних заявок
const MaxRings = 10

// Indexer переводит координаты в H3-ячейки фиксированного разрешения
type Indexer struct {
	resolution int
}

func NewIndexer(resolution int) *Indexer {
	return &Indexer{resolution: resolution}
}

// Cell возвращает H3-ячейку точки в строковом виде
func (i *Indexer) Cell(lat, lon float64) (string, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), i.resolution)
	if err != nil {
		return "", fmt.Errorf("error converting to h3 cell at res %d: %w", i.resolution, err)
	}
	return cell.String(), nil
}

// Neighborhood возвращает ячейку точки и все ячейки в пределах rings колец вокруг нее
func (i *Indexer) Neighborhood(lat, lon float64, rings int) ([]string, error) {
	if rings < 0 || rings > MaxRings {
		return nil, fmt.Errorf("rings must be between 0 and %d, got %d", MaxRings, rings)
	}

	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), i.resolution)
	if err != nil {
		return nil, fmt.Errorf("error converting to h3 cell at res %d: %w", i.resolution, err)
	}

	disk, err := h3.GridDisk(cell, rings)
	if err != nil {
		return nil, fmt.Errorf("error computing grid disk: %w", err)
	}

	cells := make([]string, 0, len(disk))
	for _, c := range disk {
		cells = append(cells, c.String())
	}
	return cells, nil
}
