package voicert

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codewandler/voicert-go/tool"
)

const (
	ApiKeyEnvVarNameShort = "OPENAI_KEY"
	ApiKeyEnvVarNameLong  = "OPENAI_API_KEY"
)

type clientConfig struct {
	model                string
	apiKey               string
	instruction          string
	responseInstructions string
	voice                string
	modalities           []string
	transcriptionModel   string
	turnDetection        TurnDetectionConfig
	temperature          float64
	speed                float64
	maxOutputTokens      int
	tools                []tool.Tool
	toolHandler          tool.Handler
	sessionURL           string
	realtimeURL          string
	httpClient           *http.Client
	transport            TransportConfig
	turnTimeout          time.Duration
	logger               *slog.Logger
	observer             Observer
	sink                 AudioSink
}

func (c *clientConfig) validate() error {
	if c.apiKey == "" {
		return fmt.Errorf("missing api key")
	}
	if c.model == "" {
		return fmt.Errorf("missing model")
	}
	return nil
}

type ClientOption func(*clientConfig)

func WithTools(tools ...tool.Tool) ClientOption {
	return func(config *clientConfig) {
		config.tools = tools
	}
}

// WithToolHandler sets the function invoked for completed function calls.
func WithToolHandler(h tool.Handler) ClientOption {
	return func(config *clientConfig) {
		config.toolHandler = h
	}
}

func WithVoice(voice string) ClientOption {
	return func(config *clientConfig) {
		config.voice = voice
	}
}

func WithSpeed(speed float64) ClientOption {
	return func(config *clientConfig) {
		config.speed = speed
	}
}

func WithModalities(modalities ...string) ClientOption {
	return func(config *clientConfig) {
		config.modalities = modalities
	}
}

// WithTranscriptionModel asks the server to transcribe audio input with the
// given model.
func WithTranscriptionModel(model string) ClientOption {
	return func(config *clientConfig) {
		config.transcriptionModel = model
	}
}

func WithTurnDetection(td TurnDetectionConfig) ClientOption {
	return func(config *clientConfig) {
		config.turnDetection = td
	}
}

func WithMaxOutputTokens(n int) ClientOption {
	return func(config *clientConfig) {
		config.maxOutputTokens = n
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientConfig) {
		o.logger = logger
	}
}

func WithDefaultLogger() ClientOption {
	return WithLogger(slog.Default())
}

func WithObserver(observer Observer) ClientOption {
	return func(o *clientConfig) {
		o.observer = observer
	}
}

// WithAudioSink sets where response audio is played.
func WithAudioSink(sink AudioSink) ClientOption {
	return func(o *clientConfig) {
		o.sink = sink
	}
}

func WithTemperature(temperature float64) ClientOption {
	return func(o *clientConfig) {
		o.temperature = temperature
	}
}

func WithModel(model string) ClientOption {
	return func(o *clientConfig) {
		o.model = model
	}
}

func WithKey(apiKey string) ClientOption {
	return func(o *clientConfig) {
		o.apiKey = apiKey
	}
}

func WithEnvKey(vars ...string) ClientOption {
	return func(o *clientConfig) {
		for _, envVarName := range vars {
			if k := os.Getenv(envVarName); k != "" {
				o.apiKey = k
				return
			}
		}
	}
}

func WithSessionURL(url string) ClientOption {
	return func(o *clientConfig) {
		o.sessionURL = url
	}
}

func WithRealtimeURL(url string) ClientOption {
	return func(o *clientConfig) {
		o.realtimeURL = url
	}
}

func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientConfig) {
		o.httpClient = c
	}
}

// WithTransport sets extra transport parameters. Observer and Logger are
// filled from the client when left nil.
func WithTransport(t TransportConfig) ClientOption {
	return func(o *clientConfig) {
		o.transport = t
	}
}

// WithTurnTimeout bounds each turn. Zero disables the limit.
func WithTurnTimeout(d time.Duration) ClientOption {
	return func(o *clientConfig) {
		o.turnTimeout = d
	}
}

func WithOptions(opts ...ClientOption) ClientOption {
	return func(o *clientConfig) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

func withDefaults() ClientOption {
	return WithOptions(
		WithLogger(slog.New(slog.DiscardHandler)),
		WithVoice("coral"),
		WithInstruction("You are a helpful assistant."),
		WithResponseInstructions(DefaultResponseInstructions),
		WithModalities("text", "audio"),
		WithTemperature(0.7),
		WithModel("gpt-4o-mini-realtime-preview-2024-12-17"),
		WithTurnDetection(TurnDetectionConfig{Mode: TurnDetectionNone}),
		WithEnvKey(ApiKeyEnvVarNameShort, ApiKeyEnvVarNameLong),
	)
}

// WithInstruction sets the session-level system prompt.
func WithInstruction(instruction string) ClientOption {
	return func(o *clientConfig) {
		o.instruction = instruction
	}
}

// WithResponseInstructions sets the instructions sent with each response.create.
func WithResponseInstructions(instructions string) ClientOption {
	return func(o *clientConfig) {
		o.responseInstructions = instructions
	}
}
