package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanarOffset(t *testing.T) {
	o := NewPlanarOffset(500000, 4000000)
	x, y := o.Apply(12.5, -3)
	assert.Equal(t, 500012.5, x)
	assert.Equal(t, 3999997.0, y)

	x, y = o.Remove(x, y)
	assert.Equal(t, 12.5, x)
	assert.Equal(t, -3.0, y)

	assert.False(t, o.IsZero())
	assert.True(t, PlanarOffset{}.IsZero())
}
