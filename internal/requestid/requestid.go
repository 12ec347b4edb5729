package requestid

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix       = "RC"
	layout       = "20060102150405"
	suffixLength = 12
)

// Generator выдает идентификаторы вида RC-20250101120000-1a2b3c4d5e6f.
// Суффикс берется из случайной части UUIDv4, поэтому идентификаторы,
// созданные в одну и ту же секунду, не совпадают.
type Generator struct {
	now func() time.Time
}

// New создает генератор на системных часах
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock создает генератор с заданными часами
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next возвращает новый идентификатор заявки
func (g *Generator) Next() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%s-%s-%s", prefix, g.now().Format(layout), random[:suffixLength])
}
