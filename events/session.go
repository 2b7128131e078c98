package events

import "github.com/codewandler/voicert-go/tool"

type AudioFormat string

const (
	AudioFormatPCM16    AudioFormat = "pcm16"
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatG711ALaw AudioFormat = "g711_alaw"
)

const (
	ModalityText  = "text"
	ModalityAudio = "audio"
)

const TurnDetectionServerVAD = "server_vad"

// Session is the server's view of the session, as carried by
// session.created and session.updated.
type Session struct {
	ID                      string                   `json:"id,omitempty"`
	Object                  string                   `json:"object,omitempty"`
	ExpiresAt               int64                    `json:"expires_at,omitempty"`
	Model                   string                   `json:"model,omitempty"`
	Modalities              []string                 `json:"modalities,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	InputAudioFormat        AudioFormat              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat              `json:"output_audio_format,omitempty"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection,omitempty"`
	ToolChoice              string                   `json:"tool_choice,omitempty"`
	Temperature             float64                  `json:"temperature,omitempty"`
}

// SessionUpdate is the payload of session.update. TurnDetection has no
// omitempty: a nil value is sent as null, which disables turn detection.
type SessionUpdate struct {
	Modalities              []string                 `json:"modalities,omitempty"`
	Instructions            string                   `json:"instructions,omitempty"`
	Voice                   string                   `json:"voice,omitempty"`
	InputAudioFormat        AudioFormat              `json:"input_audio_format,omitempty"`
	OutputAudioFormat       AudioFormat              `json:"output_audio_format,omitempty"`
	InputAudioTranscription *InputAudioTranscription `json:"input_audio_transcription,omitempty"`
	TurnDetection           *TurnDetection           `json:"turn_detection"`
	Tools                   []tool.Tool              `json:"tools,omitempty"`
	ToolChoice              tool.Choice              `json:"tool_choice,omitempty"`
	Temperature             float64                  `json:"temperature,omitempty"`
	MaxResponseOutputTokens int                      `json:"max_response_output_tokens,omitempty"`
	Speed                   float64                  `json:"speed,omitempty"`
}

type InputAudioTranscription struct {
	Model    string `json:"model"`
	Language string `json:"language,omitempty"`
}

// TurnDetection holds the VAD configuration.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
	CreateResponse    bool    `json:"create_response"`
	InterruptResponse bool    `json:"interrupt_response,omitempty"`
}
