package websocket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// ErrClosed is returned by Read and Write once the connection has been
// closed cleanly by either side.
var ErrClosed = errors.New("websocket: connection closed")

type ClientConfig struct {
	URL         string
	DialTimeout time.Duration
	Headers     http.Header
	Protocols   []string
	Logger      *slog.Logger
	// ReadBuffer is the number of received messages held until Read takes
	// them. Zero means 1000.
	ReadBuffer  int
}

func (c ClientConfig) bufferSize() int {
	if c.ReadBuffer > 0 {
		return c.ReadBuffer
	}
	return 1000
}

type Message = wsutil.Message

type Client struct {
	conn      net.Conn
	in        chan Message
	done      chan struct{}
	stop      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	writeMu   sync.Mutex
	errMu     sync.Mutex
	readErr   error
	closing   bool
	logger    *slog.Logger
}

func (c *Client) setDone(err error) {
	c.doneOnce.Do(func() {
		c.errMu.Lock()
		c.readErr = err
		c.errMu.Unlock()
		close(c.done)
	})
}

func (c *Client) err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.readErr
}

func (c *Client) isClosing() bool {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.closing
}

// Done is closed when the read side has terminated.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) WriteText(data []byte) error {
	return c.Write(ws.OpText, data)
}

func (c *Client) WriteBinary(data []byte) error {
	return c.Write(ws.OpBinary, data)
}

func (c *Client) Ping(data []byte) error {
	return c.Write(ws.OpPing, data)
}

func (c *Client) Write(opcode ws.OpCode, data []byte) error {
	select {
	case <-c.done:
		if err := c.err(); err != nil && !errors.Is(err, ErrClosed) {
			return err
		}
		return ErrClosed
	default:
	}
	if c.isClosing() {
		return ErrClosed
	}
	return c.write(opcode, data)
}

func (c *Client) write(opcode ws.OpCode, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wsutil.WriteClientMessage(c.conn, opcode, data); err != nil {
		return fmt.Errorf("write opcode %d: %w", opcode, err)
	}
	return nil
}

// Read returns the next data frame. It returns ErrClosed after a clean close
// and the underlying error after a failed read.
func (c *Client) Read(ctx context.Context) (Message, error) {
	select {
	case msg, ok := <-c.in:
		if ok {
			return msg, nil
		}
		if err := c.err(); err != nil {
			return Message{}, err
		}
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// Close sends a close frame, waits for the peer to answer until ctx expires,
// and releases the connection. Messages not yet read are dropped. Calls after
// the first return nil immediately.
func (c *Client) Close(ctx context.Context) error {
	var err error
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.closing = true
		c.errMu.Unlock()
		close(c.stop)

		select {
		case <-c.done:
		default:
			if werr := c.write(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, "closing")); werr != nil {
				c.logger.Debug("send close frame failed", slog.Any("err", werr))
				break
			}
			select {
			case <-c.done:
			case <-ctx.Done():
				err = fmt.Errorf("close failed: %w", ctx.Err())
			}
		}

		if cerr := c.conn.Close(); cerr != nil && err == nil && !errors.Is(cerr, net.ErrClosed) {
			err = cerr
		}
	})
	return err
}

func Connect(ctx context.Context, config ClientConfig) (*Client, error) {

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(
		slog.String("url", config.URL),
	)

	dialTimeout := config.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 10 * time.Second
	}

	// handshake timeout only
	hsCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	d := ws.Dialer{
		Timeout:   dialTimeout,
		Header:    ws.HandshakeHeaderHTTP(config.Headers),
		Protocols: config.Protocols,
	}
	conn, br, hs, err := d.Dial(hsCtx, config.URL)
	if err != nil {
		return nil, err
	}
	logger.Debug("handshake complete", slog.String("protocol", hs.Protocol))

	// The server may have sent frames right behind the handshake response;
	// those sit in br and must be read before the raw conn.
	var src io.Reader = conn
	if br != nil {
		src = br
	}

	client := &Client{
		conn:   conn,
		in:     make(chan Message, config.bufferSize()),
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
		logger: logger,
	}

	go client.readLoop(src)

	logger.Info("connected to websocket")

	return client, nil
}

func (c *Client) readLoop(src io.Reader) {
	defer close(c.in)

	for {
		messages, err := wsutil.ReadServerMessage(src, nil)
		if err != nil {
			var closed wsutil.ClosedError
			switch {
			case errors.Is(err, io.EOF), errors.As(err, &closed), c.isClosing():
				c.logger.Debug("ws read finished", slog.Any("err", err))
				c.setDone(ErrClosed)
			default:
				c.logger.Error("ws read failed", slog.Any("err", err))
				c.setDone(fmt.Errorf("read: %w", err))
			}
			return
		}

		for _, msg := range messages {
			if msg.OpCode.IsControl() {
				c.logger.Debug("rcv: control", slog.Any("opcode", msg.OpCode))
				switch msg.OpCode {
				case ws.OpPing:
					if err := c.write(ws.OpPong, msg.Payload); err != nil {
						c.logger.Error("pong failed", slog.Any("err", err))
					}
				case ws.OpClose:
					c.logger.Debug("rcv: close", slog.String("reason", string(msg.Payload)))
					if !c.isClosing() {
						_ = c.write(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
					}
					c.setDone(ErrClosed)
					return
				}
				continue
			}

			switch msg.OpCode {
			case ws.OpText:
				c.logger.Debug("rcv: text", slog.Int("len", len(msg.Payload)))
			case ws.OpBinary:
				c.logger.Debug("rcv: binary", slog.Int("len", len(msg.Payload)))
			}
			select {
			case c.in <- msg:
			case <-c.stop:
				c.logger.Debug("ws read stopped with unread messages")
				c.setDone(ErrClosed)
				return
			}
		}
	}
}
