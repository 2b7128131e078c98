package voicert

import (
	"time"

	"github.com/codewandler/voicert-go/events"
	"github.com/codewandler/voicert-go/tool"
)

type TurnDetectionMode string

const (
	TurnDetectionNone   TurnDetectionMode = "none"
	TurnDetectionServer TurnDetectionMode = events.TurnDetectionServerVAD
)

// TurnDetectionConfig configures server-side voice activity detection.
type TurnDetectionConfig struct {
	Mode            TurnDetectionMode
	Threshold       float64
	PrefixPadding   time.Duration
	SilenceDuration time.Duration
	AutoRespond     bool
}

// wire returns nil for TurnDetectionNone, which is sent as null.
func (td TurnDetectionConfig) wire() *events.TurnDetection {
	if td.Mode != TurnDetectionServer {
		return nil
	}
	return &events.TurnDetection{
		Type:              string(td.Mode),
		Threshold:         td.Threshold,
		PrefixPaddingMs:   int(td.PrefixPadding / time.Millisecond),
		SilenceDurationMs: int(td.SilenceDuration / time.Millisecond),
		CreateResponse:    td.AutoRespond,
	}
}

// Session describes an open realtime session. It is fixed once Open returns.
type Session struct {
	ID                 string
	Token              string
	Model              string
	Modalities         []string
	Voice              string
	InputAudioFormat   events.AudioFormat
	OutputAudioFormat  events.AudioFormat
	TranscriptionModel string
	TurnDetection      TurnDetectionConfig
	ExpiresAt          time.Time
}

func (s *Session) update(c *clientConfig) events.SessionUpdate {
	u := events.SessionUpdate{
		Modalities:              s.Modalities,
		Instructions:            c.instruction,
		Voice:                   s.Voice,
		InputAudioFormat:        s.InputAudioFormat,
		OutputAudioFormat:       s.OutputAudioFormat,
		TurnDetection:           s.TurnDetection.wire(),
		Tools:                   c.tools,
		ToolChoice:              tool.ChoiceFor(c.tools),
		Temperature:             c.temperature,
		MaxResponseOutputTokens: c.maxOutputTokens,
		Speed:                   c.speed,
	}
	if s.TranscriptionModel != "" {
		u.InputAudioTranscription = &events.InputAudioTranscription{Model: s.TranscriptionModel}
	}
	return u
}
