package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "madrid", Normalize("  MADRID "))
	assert.Equal(t, "san sebastián de los reyes", Normalize("San   Sebastián de los Reyes"))
	// Разложенная форма (A + комбинирующий акцент) совпадает с составной.
	assert.Equal(t, Normalize("Ávila"), Normalize("Ávila"))
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("Madrid", " madrid"))
	assert.True(t, Equal("A Coruña", "a  coruña"))
	assert.False(t, Equal("Madrid", "Barcelona"))
}

func TestSort(t *testing.T) {
	items := []string{"Zaragoza", "ávila", "Barcelona", "Álava", "Cádiz"}
	Sort(items)
	assert.Equal(t, []string{"Álava", "ávila", "Barcelona", "Cádiz", "Zaragoza"}, items)
}

func TestCompare_TieBreaksOnRaw(t *testing.T) {
	assert.NotZero(t, Compare("Bar", "bar"))
	assert.Equal(t, 0, Compare("Bar", "Bar"))
}
