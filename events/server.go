package events

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	TypeError                        = "error"
	TypeSessionCreated               = "session.created"
	TypeSessionUpdated               = "session.updated"
	TypeResponseCreated              = "response.created"
	TypeResponseDone                 = "response.done"
	TypeResponseTextDelta            = "response.text.delta"
	TypeResponseTextDone             = "response.text.done"
	TypeResponseAudioDelta           = "response.audio.delta"
	TypeResponseAudioDone            = "response.audio.done"
	TypeResponseAudioTranscriptDelta = "response.audio_transcript.delta"
	TypeResponseAudioTranscriptDone  = "response.audio_transcript.done"
	TypeSpeechStarted                = "input_audio_buffer.speech_started"
	TypeSpeechStopped                = "input_audio_buffer.speech_stopped"
)

// ServerEvent is an event received from the server.
type ServerEvent interface {
	EventType() string
	Accept(v Visitor) error
}

// Visitor has one method per server event type. Adding an event type adds a
// method here, so every implementation has to handle it.
type Visitor interface {
	VisitError(*ErrorEvent) error
	VisitSessionCreated(*SessionCreatedEvent) error
	VisitSessionUpdated(*SessionUpdatedEvent) error
	VisitResponseCreated(*ResponseCreatedEvent) error
	VisitResponseDone(*ResponseDoneEvent) error
	VisitTextDelta(*ResponseTextDeltaEvent) error
	VisitTextDone(*ResponseTextDoneEvent) error
	VisitAudioDelta(*ResponseAudioDeltaEvent) error
	VisitAudioDone(*ResponseAudioDoneEvent) error
	VisitAudioTranscriptDelta(*ResponseAudioTranscriptDeltaEvent) error
	VisitAudioTranscriptDone(*ResponseAudioTranscriptDoneEvent) error
	VisitSpeechStarted(*SpeechStartedEvent) error
	VisitSpeechStopped(*SpeechStoppedEvent) error
	VisitUnknown(*UnknownEvent) error
}

type ErrorEvent struct {
	BaseEvent
	ErrorDetail ErrorDetail `json:"error"`
}

func (e *ErrorEvent) Error() string {
	return e.ErrorDetail.Error()
}

// ErrorDetail holds the details of the error.
type ErrorDetail struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Param   string `json:"param"`
	EventID string `json:"event_id"`
}

func (e *ErrorDetail) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type SessionCreatedEvent struct {
	BaseEvent
	Session Session `json:"session"`
}

type SessionUpdatedEvent struct {
	BaseEvent
	Session Session `json:"session"`
}

type ResponseCreatedEvent struct {
	BaseEvent
	Response Response `json:"response"`
}

type ResponseDoneEvent struct {
	BaseEvent
	Response Response `json:"response"`
}

type Response struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	StatusDetails *StatusDetails `json:"status_details,omitempty"`
	Output        []OutputItem   `json:"output,omitempty"`
	Usage         *Usage         `json:"usage,omitempty"`
}

const (
	ResponseStatusCompleted  = "completed"
	ResponseStatusCancelled  = "cancelled"
	ResponseStatusFailed     = "failed"
	ResponseStatusIncomplete = "incomplete"
)

type StatusDetails struct {
	Type   string       `json:"type,omitempty"`
	Reason string       `json:"reason,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

type OutputItem struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Status    string        `json:"status,omitempty"`
	Role      Role          `json:"role,omitempty"`
	Content   []ContentPart `json:"content,omitempty"`
	Name      string        `json:"name,omitempty"`
	CallID    string        `json:"call_id,omitempty"`
	Arguments string        `json:"arguments,omitempty"`
}

type Usage struct {
	TotalTokens  int `json:"total_tokens"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type responsePart struct {
	ResponseID   string `json:"response_id"`
	ItemID       string `json:"item_id"`
	OutputIndex  int    `json:"output_index"`
	ContentIndex int    `json:"content_index"`
}

type ResponseTextDeltaEvent struct {
	BaseEvent
	responsePart
	Delta string `json:"delta"`
}

type ResponseTextDoneEvent struct {
	BaseEvent
	responsePart
	Text string `json:"text"`
}

type ResponseAudioDeltaEvent struct {
	BaseEvent
	responsePart
	Delta string `json:"delta"`
}

// Audio decodes the base64 chunk.
func (e *ResponseAudioDeltaEvent) Audio() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(e.Delta)
	if err != nil {
		return nil, fmt.Errorf("%w: audio delta: %w", ErrMalformed, err)
	}
	return data, nil
}

type ResponseAudioDoneEvent struct {
	BaseEvent
	responsePart
}

type ResponseAudioTranscriptDeltaEvent struct {
	BaseEvent
	responsePart
	Delta string `json:"delta"`
}

type ResponseAudioTranscriptDoneEvent struct {
	BaseEvent
	responsePart
	Transcript string `json:"transcript"`
}

type SpeechStartedEvent struct {
	BaseEvent
	AudioStartMs int    `json:"audio_start_ms"`
	ItemID       string `json:"item_id"`
}

type SpeechStoppedEvent struct {
	BaseEvent
	AudioEndMs int    `json:"audio_end_ms"`
	ItemID     string `json:"item_id"`
}

// UnknownEvent is any well-formed event of a type this package does not model.
type UnknownEvent struct {
	BaseEvent
	Raw json.RawMessage `json:"-"`
}

func (e *ErrorEvent) Accept(v Visitor) error             { return v.VisitError(e) }
func (e *SessionCreatedEvent) Accept(v Visitor) error    { return v.VisitSessionCreated(e) }
func (e *SessionUpdatedEvent) Accept(v Visitor) error    { return v.VisitSessionUpdated(e) }
func (e *ResponseCreatedEvent) Accept(v Visitor) error   { return v.VisitResponseCreated(e) }
func (e *ResponseDoneEvent) Accept(v Visitor) error      { return v.VisitResponseDone(e) }
func (e *ResponseTextDeltaEvent) Accept(v Visitor) error { return v.VisitTextDelta(e) }
func (e *ResponseTextDoneEvent) Accept(v Visitor) error  { return v.VisitTextDone(e) }
func (e *ResponseAudioDeltaEvent) Accept(v Visitor) error {
	return v.VisitAudioDelta(e)
}
func (e *ResponseAudioDoneEvent) Accept(v Visitor) error { return v.VisitAudioDone(e) }
func (e *ResponseAudioTranscriptDeltaEvent) Accept(v Visitor) error {
	return v.VisitAudioTranscriptDelta(e)
}
func (e *ResponseAudioTranscriptDoneEvent) Accept(v Visitor) error {
	return v.VisitAudioTranscriptDone(e)
}
func (e *SpeechStartedEvent) Accept(v Visitor) error { return v.VisitSpeechStarted(e) }
func (e *SpeechStoppedEvent) Accept(v Visitor) error { return v.VisitSpeechStopped(e) }
func (e *UnknownEvent) Accept(v Visitor) error       { return v.VisitUnknown(e) }

// Decode parses one inbound frame. Payloads that are not JSON objects with a
// non-empty "type", or whose fields do not match their type, yield
// ErrMalformed. Unmodelled types decode to *UnknownEvent.
func Decode(data []byte) (ServerEvent, error) {
	var x BaseEvent
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if x.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformed)
	}

	switch x.Type {
	case TypeError:
		return decode[ErrorEvent](data)
	case TypeSessionCreated:
		return decode[SessionCreatedEvent](data)
	case TypeSessionUpdated:
		return decode[SessionUpdatedEvent](data)
	case TypeResponseCreated:
		return decode[ResponseCreatedEvent](data)
	case TypeResponseDone:
		return decode[ResponseDoneEvent](data)
	case TypeResponseTextDelta:
		return decode[ResponseTextDeltaEvent](data)
	case TypeResponseTextDone:
		return decode[ResponseTextDoneEvent](data)
	case TypeResponseAudioDelta:
		return decode[ResponseAudioDeltaEvent](data)
	case TypeResponseAudioDone:
		return decode[ResponseAudioDoneEvent](data)
	case TypeResponseAudioTranscriptDelta:
		return decode[ResponseAudioTranscriptDeltaEvent](data)
	case TypeResponseAudioTranscriptDone:
		return decode[ResponseAudioTranscriptDoneEvent](data)
	case TypeSpeechStarted:
		return decode[SpeechStartedEvent](data)
	case TypeSpeechStopped:
		return decode[SpeechStoppedEvent](data)
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return &UnknownEvent{BaseEvent: x, Raw: raw}, nil
	}
}

type serverEvent[T any] interface {
	*T
	ServerEvent
}

func decode[T any, P serverEvent[T]](data []byte) (ServerEvent, error) {
	evt, err := Parse[T](data)
	if err != nil {
		return nil, err
	}
	return P(evt), nil
}
