package voicert

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codewandler/voicert-go/events"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// realtimeServer starts a websocket server running handle for each
// connection and returns its ws:// url.
func realtimeServer(t *testing.T, handle func(conn net.Conn, r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readType(conn net.Conn) (string, []byte, error) {
	data, _, err := wsutil.ReadClientData(conn)
	if err != nil {
		return "", nil, err
	}
	var x struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(data, &x)
	return x.Type, data, nil
}

func writeText(conn net.Conn, frame string) {
	_ = wsutil.WriteServerMessage(conn, ws.OpText, []byte(frame))
}

func TestRealtimeURL(t *testing.T) {
	u, err := RealtimeURL("", "gpt-4o-mini-realtime-preview-2024-12-17")
	require.NoError(t, err)
	require.Equal(t, "wss://api.openai.com/v1/realtime?model=gpt-4o-mini-realtime-preview-2024-12-17", u)

	u, err = RealtimeURL("ws://localhost:8080/rt?x=1", "m")
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8080/rt?model=m&x=1", u)
}

func TestConnAuthHeaders(t *testing.T) {
	headers := make(chan http.Header, 1)
	url := realtimeServer(t, func(conn net.Conn, r *http.Request) {
		headers <- r.Header.Clone()
		_, _, _ = wsutil.ReadClientData(conn)
	})

	conn, err := Dial(context.Background(), url, "tok_abc", TransportConfig{
		Header: http.Header{"X-Trace": []string{"1"}},
	})
	require.NoError(t, err)
	defer conn.Close()

	h := <-headers
	require.Equal(t, "Bearer tok_abc", h.Get("Authorization"))
	require.Equal(t, "realtime=v1", h.Get("OpenAI-Beta"))
	require.Equal(t, "1", h.Get("X-Trace"))
}

func TestConnAuthSubprotocol(t *testing.T) {
	headers := make(chan http.Header, 1)
	url := realtimeServer(t, func(conn net.Conn, r *http.Request) {
		headers <- r.Header.Clone()
		_, _, _ = wsutil.ReadClientData(conn)
	})

	conn, err := Dial(context.Background(), url, "tok_abc", TransportConfig{AuthViaSubprotocol: true})
	require.NoError(t, err)
	defer conn.Close()

	h := <-headers
	require.Empty(t, h.Get("Authorization"))
	protocols := h.Get("Sec-WebSocket-Protocol")
	require.Contains(t, protocols, "openai-insecure-api-key.tok_abc")
	require.Contains(t, protocols, "openai-beta.realtime-v1")
}

func TestConnReceive(t *testing.T) {
	url := realtimeServer(t, func(conn net.Conn, r *http.Request) {
		writeText(conn, `{"type":`)
		_ = wsutil.WriteServerMessage(conn, ws.OpBinary, []byte{1, 2, 3})
		writeText(conn, `{"type":"response.text.done","text":"ok"}`)
		_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
		_, _, _ = wsutil.ReadClientData(conn)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, url, "tok", TransportConfig{})
	require.NoError(t, err)

	var perr *ProtocolError
	_, err = conn.Receive(ctx)
	require.ErrorAs(t, err, &perr)
	require.ErrorIs(t, err, events.ErrMalformed)

	_, err = conn.Receive(ctx)
	require.ErrorAs(t, err, &perr)

	evt, err := conn.Receive(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", evt.(*events.ResponseTextDoneEvent).Text)

	_, err = conn.Receive(ctx)
	require.ErrorIs(t, err, ErrConnectionClosed)

	require.NoError(t, conn.Close())
}

func TestConnSendAfterClose(t *testing.T) {
	received := make(chan string, 4)
	url := realtimeServer(t, func(conn net.Conn, r *http.Request) {
		for {
			typ, _, err := readType(conn)
			if err != nil {
				return
			}
			received <- typ
		}
	})

	conn, err := Dial(context.Background(), url, "tok", TransportConfig{})
	require.NoError(t, err)

	require.NoError(t, conn.Send(context.Background(), events.NewResponseCancel("")))
	require.Equal(t, events.TypeResponseCancel, <-received)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	err = conn.Send(context.Background(), events.NewResponseCancel(""))
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	require.ErrorIs(t, err, ErrConnectionClosed)

	_, err = conn.Receive(context.Background())
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestDialFailure(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/", "tok", TransportConfig{DialTimeout: 200 * time.Millisecond})
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, "dial", cerr.Op)
}
