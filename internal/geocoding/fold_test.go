package geocoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldQuery(t *testing.T) {
	assert.Equal(t, "ortigas ave, santo nino, cainta", foldQuery("  Ortigas   Ave, Santo Niño,  CAINTA "))
	assert.Equal(t, foldQuery("Sto. Niño"), foldQuery("sto. nino"))
	assert.Equal(t, "", foldQuery("   "))
}
