package voicert

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/codewandler/voicert-go/events"
	"github.com/codewandler/voicert-go/tool"
	"github.com/stretchr/testify/require"
)

// scriptedRealtime acknowledges session.update and answers every
// response.create with a short text response.
func scriptedRealtime(t *testing.T, auth chan<- string, updates chan<- events.SessionUpdate) string {
	return realtimeServer(t, func(conn net.Conn, r *http.Request) {
		if auth != nil {
			auth <- r.Header.Get("Authorization")
		}
		writeText(conn, `{"type":"session.created","session":{"id":"sess_1"}}`)

		for {
			typ, data, err := readType(conn)
			if err != nil {
				return
			}
			switch typ {
			case events.TypeSessionUpdate:
				var evt events.SessionUpdateEvent
				_ = json.Unmarshal(data, &evt)
				if updates != nil {
					updates <- evt.Session
				}
				writeText(conn, `{"type":"session.updated","session":{"id":"sess_1"}}`)
			case events.TypeResponseCreate:
				writeText(conn, `{"type":"response.created","response":{"id":"resp_1","status":"in_progress"}}`)
				writeText(conn, `{"type":"unknown_event"}`)
				writeText(conn, `{"type":"response.text.delta","response_id":"resp_1","delta":"Hi"}`)
				writeText(conn, `{"type":"response.text.done","response_id":"resp_1","text":"Hi there"}`)
				writeText(conn, `{"type":"response.done","response":{"id":"resp_1","status":"completed"}}`)
			}
		}
	})
}

func TestClientTextTurn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var longAuth string
	sessions := sessionServer(t, http.StatusOK, `{"id":"sess_1","client_secret":{"value":"tok_abc"}}`,
		func(r *http.Request, _ SessionRequest) { longAuth = r.Header.Get("Authorization") })

	auth := make(chan string, 1)
	updates := make(chan events.SessionUpdate, 1)
	rt := scriptedRealtime(t, auth, updates)

	c := New(
		WithKey("sk-long"),
		WithModel("test-model"),
		WithSessionURL(sessions.URL),
		WithRealtimeURL(rt),
		WithTranscriptionModel("whisper-1"),
		WithTools(tool.Function("conversation_end", "End the conversation", nil)),
	)
	require.NoError(t, c.Open(ctx))
	defer c.Close()

	require.Equal(t, "Bearer sk-long", longAuth)
	require.Equal(t, "Bearer tok_abc", <-auth)

	update := <-updates
	require.Equal(t, []string{"text", "audio"}, update.Modalities)
	require.Equal(t, "coral", update.Voice)
	require.Equal(t, events.AudioFormatPCM16, update.InputAudioFormat)
	require.Nil(t, update.TurnDetection)
	require.Equal(t, "whisper-1", update.InputAudioTranscription.Model)
	require.Equal(t, tool.ChoiceAuto, update.ToolChoice)
	require.Len(t, update.Tools, 1)

	s := c.Session()
	require.NotNil(t, s)
	require.Equal(t, "sess_1", s.ID)
	require.Equal(t, "tok_abc", s.Token)

	res, err := c.SendTurn(ctx, TextInput("Hello"), false)
	require.NoError(t, err)
	require.Equal(t, "Hi there", res.Text)
	require.Equal(t, "resp_1", res.ResponseID)
	require.Equal(t, 2, c.History().Len())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Nil(t, c.Session())

	_, err = c.SendTurn(ctx, TextInput("again"), false)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClientSendTurnBeforeOpen(t *testing.T) {
	c := New(WithKey("sk"))
	_, err := c.SendTurn(context.Background(), TextInput("Hello"), false)
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClientMissingKey(t *testing.T) {
	t.Setenv(ApiKeyEnvVarNameShort, "")
	t.Setenv(ApiKeyEnvVarNameLong, "")

	err := New().Open(context.Background())
	require.ErrorContains(t, err, "missing api key")
}

func TestClientSessionRejected(t *testing.T) {
	sessions := sessionServer(t, http.StatusOK, `{"id":"sess_1","client_secret":{"value":"tok"}}`, nil)
	rt := realtimeServer(t, func(conn net.Conn, r *http.Request) {
		if _, _, err := readType(conn); err != nil {
			return
		}
		writeText(conn, `{"type":"error","error":{"type":"invalid_request_error","code":"invalid_value","message":"bad voice"}}`)
		_, _, _ = readType(conn)
	})

	c := New(WithKey("sk"), WithSessionURL(sessions.URL), WithRealtimeURL(rt))
	err := c.Open(context.Background())
	require.ErrorContains(t, err, "bad voice")
	require.Nil(t, c.Session())
}

func TestClientNegotiationFailure(t *testing.T) {
	sessions := sessionServer(t, http.StatusInternalServerError, `{}`, nil)

	c := New(WithKey("sk"), WithSessionURL(sessions.URL))
	err := c.Open(context.Background())
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusInternalServerError, serr.StatusCode)
}

func TestTurnDetectionWire(t *testing.T) {
	require.Nil(t, TurnDetectionConfig{Mode: TurnDetectionNone}.wire())

	td := TurnDetectionConfig{
		Mode:            TurnDetectionServer,
		Threshold:       0.5,
		PrefixPadding:   300 * time.Millisecond,
		SilenceDuration: 500 * time.Millisecond,
		AutoRespond:     true,
	}.wire()
	require.Equal(t, &events.TurnDetection{
		Type:              "server_vad",
		Threshold:         0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
		CreateResponse:    true,
	}, td)
}
