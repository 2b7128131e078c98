package events

const (
	TypeSessionUpdate          = "session.update"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
	TypeResponseCancel         = "response.cancel"
)

// ClientEvent is an event sent from the client to the server. The set is
// closed: only types in this package implement it.
type ClientEvent interface {
	EventType() string
	clientEvent()
}

type SessionUpdateEvent struct {
	BaseEvent
	Session SessionUpdate `json:"session"`
}

func NewSessionUpdate(s SessionUpdate) *SessionUpdateEvent {
	return &SessionUpdateEvent{BaseEvent: NewBaseEvent(TypeSessionUpdate), Session: s}
}

type ConversationItemCreateEvent struct {
	BaseEvent
	PreviousItemID string           `json:"previous_item_id,omitempty"`
	Item           ConversationItem `json:"item"`
}

func NewConversationItemCreate(item ConversationItem) *ConversationItemCreateEvent {
	return &ConversationItemCreateEvent{BaseEvent: NewBaseEvent(TypeConversationItemCreate), Item: item}
}

type ResponseCreateEvent struct {
	BaseEvent
	Response ResponseCreatePayload `json:"response"`
}

type ResponseCreatePayload struct {
	Modalities        []string    `json:"modalities,omitempty"`
	Instructions      string      `json:"instructions,omitempty"`
	Voice             string      `json:"voice,omitempty"`
	OutputAudioFormat AudioFormat `json:"output_audio_format,omitempty"`
	Temperature       float64     `json:"temperature,omitempty"`
	MaxOutputTokens   int         `json:"max_output_tokens,omitempty"`
}

func NewResponseCreate(p ResponseCreatePayload) *ResponseCreateEvent {
	return &ResponseCreateEvent{BaseEvent: NewBaseEvent(TypeResponseCreate), Response: p}
}

type ResponseCancelEvent struct {
	BaseEvent
	ResponseID string `json:"response_id,omitempty"`
}

func NewResponseCancel(responseID string) *ResponseCancelEvent {
	return &ResponseCancelEvent{BaseEvent: NewBaseEvent(TypeResponseCancel), ResponseID: responseID}
}

func (*SessionUpdateEvent) clientEvent()          {}
func (*ConversationItemCreateEvent) clientEvent() {}
func (*ResponseCreateEvent) clientEvent()         {}
func (*ResponseCancelEvent) clientEvent()         {}
