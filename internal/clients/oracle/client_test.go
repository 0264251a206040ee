package oracle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceWithoutAnyTick(t *testing.T) {
	c := NewPriceFeedClient("ws://localhost:0", zerolog.Nop())

	_, err := c.Price(context.Background(), "tkn:base")
	assert.Error(t, err)
}

func TestPriceServedFromCache(t *testing.T) {
	c := NewPriceFeedClient("ws://localhost:0", zerolog.Nop())
	c.applyTick("tkn:base", 105)

	price, err := c.Price(context.Background(), "tkn:base")
	require.NoError(t, err)
	assert.Equal(t, uint64(105), price)

	// A later tick replaces the cached value.
	c.applyTick("tkn:base", 110)
	price, err = c.Price(context.Background(), "tkn:base")
	require.NoError(t, err)
	assert.Equal(t, uint64(110), price)
}

func TestStalePriceRejected(t *testing.T) {
	c := NewPriceFeedClient("ws://localhost:0", zerolog.Nop())

	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	c.applyTick("tkn:base", 105)

	mu.Lock()
	now = now.Add(staleThreshold + time.Second)
	mu.Unlock()

	_, err := c.Price(context.Background(), "tkn:base")
	assert.Error(t, err)
}
