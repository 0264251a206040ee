// Package oracle provides the live price-feed client. It implements the
// price oracle capability over a websocket stream and serves the last
// received price per asset, rejecting reads once the feed has gone stale.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/ballastfi/ballast/internal/domain"
)

const (
	dialTimeout = 30 * time.Second

	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 5 * time.Minute

	// staleThreshold bounds how old a cached price may be before reads
	// fail. A vault trading on stale prices is worse than one refusing
	// to trade.
	staleThreshold = 5 * time.Minute
)

// tick is one price update on the feed.
type tick struct {
	Asset string `json:"asset"`
	Price uint64 `json:"price"`
}

type cachedPrice struct {
	price uint64
	at    time.Time
}

// PriceFeedClient is a websocket price oracle with a last-price cache.
type PriceFeedClient struct {
	url string
	log zerolog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	stopped bool

	cacheMu sync.RWMutex
	cache   map[domain.AssetID]cachedPrice

	stopChan chan struct{}
	now      func() time.Time
}

// NewPriceFeedClient creates a price feed client for the given websocket
// endpoint.
func NewPriceFeedClient(url string, log zerolog.Logger) *PriceFeedClient {
	return &PriceFeedClient{
		url:      url,
		log:      log.With().Str("component", "price_feed").Logger(),
		cache:    make(map[domain.AssetID]cachedPrice),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start connects and begins the read loop. A failed initial dial is not
// fatal; the reconnect loop keeps trying in the background.
func (c *PriceFeedClient) Start() error {
	if err := c.connect(); err != nil {
		c.log.Warn().Err(err).Msg("Initial price feed connection failed, retrying in background")
		go c.reconnectLoop()
		return err
	}
	go c.readLoop()
	return nil
}

// Stop closes the connection and stops reconnecting.
func (c *PriceFeedClient) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopChan)
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// Price returns the last received price for the asset. It fails when no
// price was ever received or when the cached price has gone stale.
func (c *PriceFeedClient) Price(_ context.Context, asset domain.AssetID) (uint64, error) {
	c.cacheMu.RLock()
	cached, ok := c.cache[asset]
	c.cacheMu.RUnlock()

	if !ok {
		return 0, fmt.Errorf("no price received for %s", asset)
	}
	if c.now().Sub(cached.at) > staleThreshold {
		return 0, fmt.Errorf("price for %s is stale (last update %s)", asset, cached.at.Format(time.RFC3339))
	}
	return cached.price, nil
}

func (c *PriceFeedClient) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial price feed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("Price feed connected")
	return nil
}

func (c *PriceFeedClient) readLoop() {
	for {
		c.mu.RLock()
		conn := c.conn
		stopped := c.stopped
		c.mu.RUnlock()

		if stopped || conn == nil {
			return
		}

		msgType, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return
			}
			c.log.Warn().Err(err).Msg("Price feed read failed, reconnecting")
			go c.reconnectLoop()
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var t tick
		if err := json.Unmarshal(data, &t); err != nil {
			c.log.Warn().Err(err).Msg("Undecodable price tick")
			continue
		}
		if t.Asset == "" || t.Price == 0 {
			continue
		}
		c.applyTick(domain.AssetID(t.Asset), t.Price)
	}
}

// applyTick updates the last-price cache.
func (c *PriceFeedClient) applyTick(asset domain.AssetID, price uint64) {
	c.cacheMu.Lock()
	c.cache[asset] = cachedPrice{price: price, at: c.now()}
	c.cacheMu.Unlock()
}

// reconnectLoop retries the connection with exponential backoff until it
// succeeds or the client is stopped.
func (c *PriceFeedClient) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		delay := time.Duration(float64(baseReconnectDelay) * math.Pow(2, float64(attempt)))
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}

		select {
		case <-c.stopChan:
			return
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			c.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Price feed reconnect failed")
			continue
		}
		go c.readLoop()
		return
	}
}
