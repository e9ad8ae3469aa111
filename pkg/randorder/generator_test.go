package randorder

import (
	"testing"

	"fenrir/internal/common"

	"github.com/stretchr/testify/assert"
)

func TestNext_AlternatesSideByParity(t *testing.T) {
	g := New(DefaultConfig(4, 1))
	assert.Equal(t, common.Buy, g.Next(0).Side)
	assert.Equal(t, common.Sell, g.Next(1).Side)
}

func TestNext_PriceWithinBaseAndSpread(t *testing.T) {
	g := New(DefaultConfig(4, 42))
	for i := uint64(0); i < 50; i++ {
		order := g.Next(i)
		if order.Side == common.Buy {
			assert.GreaterOrEqual(t, order.Price, uint64(101))
			assert.LessOrEqual(t, order.Price, uint64(110))
		} else {
			assert.GreaterOrEqual(t, order.Price, uint64(106))
			assert.LessOrEqual(t, order.Price, uint64(115))
		}
	}
}

func TestNew_IsDeterministicGivenSeed(t *testing.T) {
	a := New(DefaultConfig(4, 7))
	b := New(DefaultConfig(4, 7))
	for i := uint64(0); i < 20; i++ {
		assert.Equal(t, a.Next(i), b.Next(i))
	}
}

func TestGenerateBatch_ReturnsRequestedCount(t *testing.T) {
	g := New(DefaultConfig(4, 7))
	orders := g.GenerateBatch(100, 25)
	assert.Len(t, orders, 25)
	assert.Equal(t, uint64(100), orders[0].ID)
	assert.Equal(t, uint64(124), orders[24].ID)
}
