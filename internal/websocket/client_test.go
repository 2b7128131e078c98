package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/require"
)

// echoServer upgrades every request and echoes data frames back.
func echoServer(t *testing.T, onConnect func(r *http.Request)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onConnect != nil {
			onConnect(r)
		}
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			data, op, err := wsutil.ReadClientData(conn)
			if err != nil {
				return
			}
			if err := wsutil.WriteServerMessage(conn, op, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClientEcho(t *testing.T) {
	var gotAuth string
	url := echoServer(t, func(r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, ClientConfig{
		URL:         url,
		DialTimeout: time.Second,
		Headers:     http.Header{"Authorization": []string{"Bearer tok"}},
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer tok", gotAuth)

	require.NoError(t, client.WriteText([]byte(`{"type":"ping"}`)))
	msg, err := client.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, ws.OpText, msg.OpCode)
	require.Equal(t, `{"type":"ping"}`, string(msg.Payload))

	require.NoError(t, client.WriteBinary([]byte{1, 2}))
	msg, err = client.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, ws.OpBinary, msg.OpCode)

	require.NoError(t, client.Close(ctx))
	require.NoError(t, client.Close(ctx))

	_, err = client.Read(ctx)
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, client.WriteText([]byte("late")), ErrClosed)
}

func TestClientServerClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = wsutil.WriteServerMessage(conn, ws.OpText, []byte("bye"))
		_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, "done"))
		_, _, _ = wsutil.ReadClientData(conn)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, ClientConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http")})
	require.NoError(t, err)

	msg, err := client.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, "bye", string(msg.Payload))

	_, err = client.Read(ctx)
	require.ErrorIs(t, err, ErrClosed)

	select {
	case <-client.Done():
	case <-ctx.Done():
		t.Fatal("done not signalled")
	}
	require.NoError(t, client.Close(ctx))
}

func TestClientReadContext(t *testing.T) {
	url := echoServer(t, nil)

	client, err := Connect(context.Background(), ClientConfig{URL: url})
	require.NoError(t, err)
	defer client.Close(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Read(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectRefused(t *testing.T) {
	_, err := Connect(context.Background(), ClientConfig{
		URL:         "ws://127.0.0.1:1/",
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
}

func TestCloseWithUnreadMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 50; i++ {
			if err := wsutil.WriteServerMessage(conn, ws.OpText, []byte("event")); err != nil {
				return
			}
		}
		for {
			if _, _, err := wsutil.ReadClientData(conn); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, ClientConfig{
		URL:        "ws" + strings.TrimPrefix(srv.URL, "http"),
		ReadBuffer: 1,
	})
	require.NoError(t, err)

	// let the buffer fill up without reading
	time.Sleep(100 * time.Millisecond)

	closeCtx, closeCancel := context.WithTimeout(ctx, 2*time.Second)
	defer closeCancel()
	require.NoError(t, client.Close(closeCtx))

	select {
	case <-client.Done():
	case <-ctx.Done():
		t.Fatal("read loop still running after close")
	}
}
