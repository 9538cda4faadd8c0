package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"PairFlow/internal/domain/models"
	domrepo "PairFlow/internal/domain/repository"
	applogger "PairFlow/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a TickSource backed by the Binance combined trade stream.
// Subscription is encoded in the connect URL, so Subscribe only validates
// connection state.
type Client struct {
	baseURL        string
	pairs          []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

func New(baseURL string, pairs []string, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) domrepo.TickSource {
	return &Client{
		baseURL:        baseURL,
		pairs:          pairs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// streamURL builds the combined stream endpoint, e.g.
// wss://stream.binance.com:9443/stream?streams=btcusdt@trade/ethusdt@trade
func (c *Client) streamURL() string {
	streams := make([]string, len(c.pairs))
	for i, p := range c.pairs {
		streams[i] = strings.ToLower(p) + "@trade"
	}
	return fmt.Sprintf("%s/stream?streams=%s", c.baseURL, strings.Join(streams, "/"))
}

func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL(), nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.log.Info("binance connected", applogger.Strings("pairs", c.pairs))
	return nil
}

func (c *Client) Subscribe(context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("binance not connected")
	}
	return nil
}

// bnTrade is the trade event payload. Price and quantity arrive as strings.
type bnTrade struct {
	Event     string `json:"e"`
	EventTime int64  `json:"E"` // ms
	Symbol    string `json:"s"`
	TradeID   uint64 `json:"t"`
	Price     string `json:"p"`
	Quantity  string `json:"q"`
}

// bnEnvelope wraps combined-stream frames.
type bnEnvelope struct {
	Stream string  `json:"stream"`
	Data   bnTrade `json:"data"`
}

// Read streams ticks and errors. A read error ends both channels; the caller
// decides whether to Reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	conn := c.conn
	if conn == nil {
		errs <- fmt.Errorf("binance conn nil")
		close(ticks)
		close(errs)
		return ticks, errs
	}

	// ping loop, pinned to this connection and stopped with its read loop
	// so redials do not accumulate pingers
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				var env bnEnvelope
				if err := json.Unmarshal(b, &env); err != nil {
					// ignore non-trade frames
					continue
				}
				if env.Data.Event != "trade" {
					continue
				}
				tick, err := env.Data.toTick()
				if err != nil {
					c.log.Debug("binance frame skipped", applogger.Error(err))
					continue
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func (d bnTrade) toTick() (*models.Tick, error) {
	price, err := strconv.ParseFloat(d.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", d.Price, err)
	}
	size, err := strconv.ParseFloat(d.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", d.Quantity, err)
	}
	return &models.Tick{
		Pair:       d.Symbol,
		Price:      price,
		Size:       size,
		EventTime:  d.EventTime * 1000, // ms to us
		SequenceID: d.TradeID,
	}, nil
}

func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) IsConnected() bool { return c.connected }
