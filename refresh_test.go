package cybervault_test

import (
	"testing"

	"github.com/sagarc03/cybervault"
	"github.com/stretchr/testify/assert"
)

func TestRefreshCounter(t *testing.T) {
	c := cybervault.NewRefreshCounter()
	assert.Equal(t, uint64(0), c.Value())

	var seen []uint64
	cancel := c.Subscribe(func(v uint64) { seen = append(seen, v) })

	assert.Equal(t, uint64(1), c.Increment())
	assert.Equal(t, uint64(2), c.Increment())
	assert.Equal(t, []uint64{1, 2}, seen)

	cancel()
	c.Increment()
	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Equal(t, uint64(3), c.Value())
}
