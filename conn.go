package voicert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/codewandler/voicert-go/events"
	"github.com/codewandler/voicert-go/internal/websocket"
	"github.com/gobwas/ws"
)

const DefaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// TransportConfig carries everything the realtime transport needs. It is
// passed explicitly to Dial; nothing process-wide is modified.
type TransportConfig struct {
	// Header is merged into the handshake request.
	Header      http.Header
	DialTimeout time.Duration
	// AuthViaSubprotocol sends the token and beta marker as websocket
	// subprotocols instead of headers, for runtimes that cannot set
	// handshake headers.
	AuthViaSubprotocol bool
	Observer           Observer
	Logger             *slog.Logger
}

// RealtimeURL appends the model query parameter to base.
func RealtimeURL(base, model string) (string, error) {
	if base == "" {
		base = DefaultRealtimeURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	q := u.Query()
	q.Set("model", model)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Conn is an open realtime connection exchanging JSON events.
type Conn struct {
	ws       *websocket.Client
	observer Observer
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Dial opens the websocket at endpoint, authenticating with the ephemeral token.
func Dial(ctx context.Context, endpoint, token string, cfg TransportConfig) (*Conn, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	header := http.Header{}
	for k, v := range cfg.Header {
		header[k] = append([]string(nil), v...)
	}

	var protocols []string
	if cfg.AuthViaSubprotocol {
		protocols = []string{
			"realtime",
			"openai-insecure-api-key." + token,
			"openai-beta.realtime-v1",
		}
	} else {
		header.Set("Authorization", "Bearer "+token)
		header.Set("OpenAI-Beta", "realtime=v1")
	}

	client, err := websocket.Connect(ctx, websocket.ClientConfig{
		URL:         endpoint,
		DialTimeout: cfg.DialTimeout,
		Headers:     header,
		Protocols:   protocols,
		Logger:      logger,
	})
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}

	return &Conn{
		ws:       client,
		observer: observer,
		logger:   logger,
	}, nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send marshals evt and writes it as one text frame.
func (c *Conn) Send(ctx context.Context, evt events.ClientEvent) error {
	if c.isClosed() {
		return &ConnectionError{Op: "send", Err: ErrConnectionClosed}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", evt.EventType(), err)
	}

	if err := c.ws.WriteText(data); err != nil {
		if errors.Is(err, websocket.ErrClosed) {
			err = ErrConnectionClosed
		}
		return &ConnectionError{Op: "send", Err: err}
	}

	c.logger.Debug("sent", slog.String("type", evt.EventType()))
	c.observer.MessageSent(evt.EventType())

	return nil
}

// Receive returns the next inbound event. A clean close yields
// ErrConnectionClosed. Payloads that cannot be decoded yield *ProtocolError;
// the connection stays usable after one.
func (c *Conn) Receive(ctx context.Context) (events.ServerEvent, error) {
	if c.isClosed() {
		return nil, ErrConnectionClosed
	}

	msg, err := c.ws.Read(ctx)
	if err != nil {
		switch {
		case errors.Is(err, websocket.ErrClosed):
			return nil, ErrConnectionClosed
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, &ConnectionError{Op: "receive", Err: err}
		}
	}

	if msg.OpCode != ws.OpText {
		return nil, &ProtocolError{
			Payload: msg.Payload,
			Err:     fmt.Errorf("unexpected frame opcode %d", msg.OpCode),
		}
	}

	evt, err := events.Decode(msg.Payload)
	if err != nil {
		c.logger.Warn("undecodable event", slog.Any("err", err))
		return nil, &ProtocolError{Payload: msg.Payload, Err: err}
	}

	c.logger.Debug("received", slog.String("type", evt.EventType()))
	c.observer.MessageReceived(evt.EventType())

	return evt, nil
}

// Close closes the connection. Calling it again returns nil immediately.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.ws.Close(ctx); err != nil {
		c.logger.Debug("close", slog.Any("err", err))
		return &ConnectionError{Op: "close", Err: err}
	}
	return nil
}
