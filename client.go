package voicert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codewandler/voicert-go/events"
)

// Client is the entry point: it negotiates a session, opens the realtime
// connection and runs conversation turns over it.
type Client struct {
	config  *clientConfig
	logger  *slog.Logger
	history *History

	mu      sync.Mutex
	conn    *Conn
	session *Session
	conv    *Conversation
}

func New(opts ...ClientOption) *Client {
	config := &clientConfig{}
	withDefaults()(config)
	WithOptions(opts...)(config)

	if config.observer == nil {
		config.observer = nopObserver{}
	}

	return &Client{
		config:  config,
		logger:  config.logger,
		history: NewHistory(config.instruction),
	}
}

// Open negotiates a session, dials the realtime endpoint and configures the
// session. It returns once the server has acknowledged the configuration.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return errors.New("already open")
	}
	if err := c.config.validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	negotiator := NewNegotiator(c.config.sessionURL, c.config.apiKey, c.config.httpClient, c.logger)
	creds, err := negotiator.Negotiate(ctx, SessionRequest{
		Model:        c.config.model,
		Modalities:   c.config.modalities,
		Instructions: c.config.instruction,
		Voice:        c.config.voice,
	})
	if err != nil {
		return err
	}

	url, err := RealtimeURL(c.config.realtimeURL, c.config.model)
	if err != nil {
		return err
	}

	transport := c.config.transport
	if transport.Observer == nil {
		transport.Observer = c.config.observer
	}
	if transport.Logger == nil {
		transport.Logger = c.logger
	}

	conn, err := Dial(ctx, url, creds.Token, transport)
	if err != nil {
		return err
	}

	session := &Session{
		ID:                 creds.SessionID,
		Token:              creds.Token,
		Model:              c.config.model,
		Modalities:         c.config.modalities,
		Voice:              c.config.voice,
		InputAudioFormat:   events.AudioFormatPCM16,
		OutputAudioFormat:  events.AudioFormatPCM16,
		TranscriptionModel: c.config.transcriptionModel,
		TurnDetection:      c.config.turnDetection,
		ExpiresAt:          creds.ExpiresAt,
	}

	if err := c.configure(ctx, conn, session); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.session = session
	c.conv = NewConversation(conn, c.history, c.config.sink, ConversationConfig{
		Instructions: c.config.responseInstructions,
		TurnTimeout:  c.config.turnTimeout,
		ToolHandler:  c.config.toolHandler,
		Observer:     c.config.observer,
		Logger:       c.logger,
	})

	c.logger.Info("session open",
		slog.String("session_id", session.ID),
		slog.String("model", session.Model),
	)

	return nil
}

// configure sends session.update and waits for session.updated.
func (c *Client) configure(ctx context.Context, conn *Conn, session *Session) error {
	if err := conn.Send(ctx, events.NewSessionUpdate(session.update(c.config))); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for {
		evt, err := conn.Receive(ctx)
		if err != nil {
			var perr *ProtocolError
			if errors.As(err, &perr) {
				continue
			}
			if ctx.Err() != nil {
				return fmt.Errorf("timeout waiting for session update: %w", err)
			}
			return err
		}

		switch e := evt.(type) {
		case *events.SessionUpdatedEvent:
			return nil
		case *events.ErrorEvent:
			return fmt.Errorf("session update rejected: %w", e)
		}
	}
}

// SendTurn runs one conversation turn. It fails with ErrNotConnected when
// the client is not open.
func (c *Client) SendTurn(ctx context.Context, in Input, wantAudio bool, opts ...TurnOption) (*TurnResult, error) {
	c.mu.Lock()
	conv := c.conv
	c.mu.Unlock()

	if conv == nil {
		return nil, ErrNotConnected
	}
	return conv.SendTurn(ctx, in, wantAudio, opts...)
}

func (c *Client) History() *History {
	return c.history
}

// Session returns the open session, or nil.
func (c *Client) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

// Close closes the connection and drops the session. It is safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.session = nil
	c.conv = nil
	return err
}
