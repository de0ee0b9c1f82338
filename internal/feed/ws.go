// Package feed delivers market prices to the engine. The production
// implementation streams ticks over a WebSocket; a static in-memory feed
// backs paper runs and tests.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config configures WebSocket feed behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultConfig returns default WebSocket feed configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// MarketUpdate is a market-wide sample carried on the same stream as
// ticks, consumed by the market condition monitor.
type MarketUpdate struct {
	VolatilityPct float64 `json:"volatility_pct"`
	ChangePct     float64 `json:"change_pct"`
}

// wsMessage is the wire envelope. Type selects which payload is set.
type wsMessage struct {
	Type   string        `json:"type"` // "tick" or "market"
	Token  string        `json:"token,omitempty"`
	Price  float64       `json:"price,omitempty"`
	Market *MarketUpdate `json:"market,omitempty"`
}

// WSPriceFeed maintains the latest known price per token from a
// WebSocket stream, reconnecting with exponential backoff on errors.
type WSPriceFeed struct {
	endpoint string
	config   Config
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	latest   map[string]float64
	latestMu sync.RWMutex

	// market updates are latest-wins: a slow consumer sees the newest
	// sample, not a backlog.
	marketCh chan MarketUpdate

	done         chan struct{}
	wg           sync.WaitGroup
	reconnecting atomic.Bool
}

// NewWSPriceFeed creates a feed and connects to the endpoint.
func NewWSPriceFeed(ctx context.Context, endpoint string, config *Config, logger *log.Logger) (*WSPriceFeed, error) {
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.Default()
	}

	f := &WSPriceFeed{
		endpoint: endpoint,
		config:   cfg,
		logger:   logger,
		latest:   make(map[string]float64),
		marketCh: make(chan MarketUpdate, 1),
		done:     make(chan struct{}),
	}

	if err := f.connect(ctx); err != nil {
		return nil, err
	}

	f.wg.Add(1)
	go f.readLoop()

	f.wg.Add(1)
	go f.pingLoop()

	return f, nil
}

// connect establishes the WebSocket connection.
func (f *WSPriceFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	f.conn = conn
	return nil
}

// Prices returns the latest known price for each requested token.
// Tokens with no observed price yet are absent from the result.
func (f *WSPriceFeed) Prices(ctx context.Context, tokens []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.closed.Load() {
		return nil, fmt.Errorf("feed closed")
	}

	f.latestMu.RLock()
	defer f.latestMu.RUnlock()

	out := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		if price, ok := f.latest[token]; ok {
			out[token] = price
		}
	}
	return out, nil
}

// Market returns the channel of market-wide updates.
func (f *WSPriceFeed) Market() <-chan MarketUpdate {
	return f.marketCh
}

// Close shuts the feed down.
func (f *WSPriceFeed) Close() error {
	if f.closed.Swap(true) {
		return nil // Already closed
	}

	close(f.done)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		f.conn.Close()
	}
	f.connMu.Unlock()

	f.wg.Wait()
	close(f.marketCh)
	return nil
}

// readLoop reads messages and applies them, reconnecting on errors.
func (f *WSPriceFeed) readLoop() {
	defer f.wg.Done()

	reconnectDelay := f.config.ReconnectDelay

	for !f.closed.Load() {
		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		if conn == nil {
			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}

			if !f.reconnecting.Swap(true) {
				go f.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > f.config.MaxReconnectDelay {
				reconnectDelay = f.config.MaxReconnectDelay
			}

			select {
			case <-f.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		reconnectDelay = f.config.ReconnectDelay

		f.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and redials.
func (f *WSPriceFeed) reconnect(delay time.Duration) {
	defer f.reconnecting.Store(false)

	if f.closed.Load() {
		return
	}

	select {
	case <-f.done:
		return
	case <-time.After(delay):
	}

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
	f.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := f.connect(ctx); err != nil {
		f.logger.Printf("reconnect failed: %v", err)
		return
	}
	f.logger.Printf("reconnected to %s", f.endpoint)
}

// handleMessage applies one wire message.
func (f *WSPriceFeed) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		f.logger.Printf("malformed feed message: %v", err)
		return
	}

	switch msg.Type {
	case "tick":
		if msg.Token == "" || msg.Price <= 0 {
			return
		}
		f.latestMu.Lock()
		f.latest[msg.Token] = msg.Price
		f.latestMu.Unlock()

	case "market":
		if msg.Market == nil {
			return
		}
		// Latest-wins: drop the stale sample if the consumer is behind.
		select {
		case f.marketCh <- *msg.Market:
		default:
			select {
			case <-f.marketCh:
			default:
			}
			select {
			case f.marketCh <- *msg.Market:
			default:
			}
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (f *WSPriceFeed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			if f.conn != nil {
				f.conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
				if err := f.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			f.connMu.Unlock()
		}
	}
}
