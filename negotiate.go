package voicert

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultSessionURL = "https://api.openai.com/v1/realtime/sessions"

type SessionRequest struct {
	Model        string   `json:"model"`
	Modalities   []string `json:"modalities"`
	Instructions string   `json:"instructions"`
	Voice        string   `json:"voice,omitempty"`
}

// Credentials is the result of a session handshake. Token is the ephemeral
// secret used to authenticate the realtime connection.
type Credentials struct {
	SessionID string
	Token     string
	ExpiresAt time.Time
}

type sessionResponse struct {
	ID           string `json:"id"`
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Negotiator exchanges a long-lived API key for an ephemeral session token.
type Negotiator struct {
	url    string
	key    string
	http   *resty.Client
	logger *slog.Logger
}

func NewNegotiator(url, key string, httpClient *http.Client, logger *slog.Logger) *Negotiator {
	if url == "" {
		url = DefaultSessionURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Negotiator{
		url:    url,
		key:    key,
		http:   resty.NewWithClient(httpClient),
		logger: logger,
	}
}

// Negotiate performs one POST to the session endpoint. It does not retry.
func (n *Negotiator) Negotiate(ctx context.Context, req SessionRequest) (*Credentials, error) {
	resp, err := n.http.R().
		SetContext(ctx).
		SetAuthToken(n.key).
		SetHeader("Content-Type", "application/json").
		SetHeader("OpenAI-Beta", "realtime=v1").
		SetBody(req).
		Post(n.url)
	if err != nil {
		return nil, &SessionError{Op: "request", Err: err}
	}

	if !resp.IsSuccess() {
		n.logger.Error("session handshake rejected",
			slog.Int("status", resp.StatusCode()),
			slog.String("body", resp.String()),
		)
		return nil, &SessionError{
			Op:         "request",
			StatusCode: resp.StatusCode(),
			Err:        errors.New(http.StatusText(resp.StatusCode())),
		}
	}

	var body sessionResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &SessionError{Op: "decode", StatusCode: resp.StatusCode(), Err: err}
	}
	if body.ID == "" {
		return nil, &SessionError{Op: "decode", StatusCode: resp.StatusCode(), Err: errors.New("missing session id")}
	}
	if body.ClientSecret.Value == "" {
		return nil, &SessionError{Op: "decode", StatusCode: resp.StatusCode(), Err: errors.New("missing client secret")}
	}

	creds := &Credentials{
		SessionID: body.ID,
		Token:     body.ClientSecret.Value,
	}
	if body.ClientSecret.ExpiresAt > 0 {
		creds.ExpiresAt = time.Unix(body.ClientSecret.ExpiresAt, 0)
	}

	n.logger.Debug("session negotiated", slog.String("session_id", creds.SessionID))

	return creds, nil
}
