package voicert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/codewandler/voicert-go/events"
	"github.com/codewandler/voicert-go/tool"
)

const DefaultResponseInstructions = "Please assist the user."

type Modality int

const (
	ModalityText Modality = iota
	ModalityAudio
)

// Input is the user content of one turn.
type Input struct {
	Modality Modality
	Text     string
	Audio    []byte
}

func TextInput(text string) Input {
	return Input{Modality: ModalityText, Text: text}
}

// AudioInput wraps 24 kHz mono PCM16 audio.
func AudioInput(pcm []byte) Input {
	return Input{Modality: ModalityAudio, Audio: pcm}
}

func (in Input) part() (events.ContentPart, error) {
	switch in.Modality {
	case ModalityText:
		return events.InputText(in.Text), nil
	case ModalityAudio:
		if len(in.Audio) == 0 {
			return events.ContentPart{}, errors.New("empty audio input")
		}
		return events.InputAudio(in.Audio), nil
	default:
		return events.ContentPart{}, fmt.Errorf("unknown input modality %d", in.Modality)
	}
}

type TurnState int

const (
	TurnIdle TurnState = iota
	TurnAwaitingKickoff
	TurnStreaming
	TurnComplete
	TurnErrored
)

func (s TurnState) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnAwaitingKickoff:
		return "awaiting_kickoff"
	case TurnStreaming:
		return "streaming"
	case TurnComplete:
		return "complete"
	case TurnErrored:
		return "errored"
	default:
		return fmt.Sprintf("TurnState(%d)", int(s))
	}
}

// TurnResult is what one turn produced. Audio has already been written to the
// sink when the turn returns. Partial is set when the turn ended without a
// terminal event, in which case nothing was added to the history.
type TurnResult struct {
	Text       string
	Audio      []byte
	Transcript string
	Partial    bool
	ResponseID string
}

// EventConn is the part of Conn a conversation needs.
type EventConn interface {
	Send(ctx context.Context, evt events.ClientEvent) error
	Receive(ctx context.Context) (events.ServerEvent, error)
}

// AudioSink receives decoded audio chunks in arrival order.
type AudioSink interface {
	Write(chunk []byte) error
}

type ConversationConfig struct {
	// Instructions are sent with every response.create.
	Instructions string
	// TurnTimeout bounds one turn. Zero means no limit.
	TurnTimeout time.Duration
	ToolHandler tool.Handler
	Observer    Observer
	Logger      *slog.Logger
}

// Conversation drives turns over one connection. Turns are serialized.
type Conversation struct {
	mu      sync.Mutex
	conn    EventConn
	history *History
	sink    AudioSink
	config  ConversationConfig
	state   TurnState
}

// NewConversation creates a conversation. A nil sink discards audio.
func NewConversation(conn EventConn, history *History, sink AudioSink, config ConversationConfig) *Conversation {
	if config.Instructions == "" {
		config.Instructions = DefaultResponseInstructions
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Conversation{
		conn:    conn,
		history: history,
		sink:    sink,
		config:  config,
	}
}

func (c *Conversation) History() *History { return c.history }

// State returns the state the last turn ended in.
func (c *Conversation) State() TurnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TurnOption adjusts a single turn.
type TurnOption func(*turn)

// WithTurnSink plays this turn's audio on sink instead of the conversation's
// sink. A nil sink discards the audio.
func WithTurnSink(sink AudioSink) TurnOption {
	return func(t *turn) {
		t.sink = sink
	}
}

// SendTurn sends one user input and streams the reply until a terminal event.
// With wantAudio the reply is requested as text and audio and each audio chunk
// is written to the sink as it arrives.
func (c *Conversation) SendTurn(ctx context.Context, in Input, wantAudio bool, opts ...TurnOption) (*TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	part, err := in.part()
	if err != nil {
		return nil, err
	}

	if c.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.TurnTimeout)
		defer cancel()
	}

	t := &turn{
		ctx:       ctx,
		conv:      c,
		wantAudio: wantAudio,
		sink:      c.sink,
		started:   time.Now(),
		logger:    c.config.Logger,
	}
	for _, opt := range opts {
		opt(t)
	}

	res, err := t.run(part)
	c.state = t.state

	switch {
	case err != nil:
		c.config.Observer.TurnCompleted(TurnOutcomeError, time.Since(t.started))
		return nil, err
	case res.Partial:
		c.config.Observer.TurnCompleted(TurnOutcomePartial, time.Since(t.started))
	default:
		c.config.Observer.TurnCompleted(TurnOutcomeComplete, time.Since(t.started))
	}
	return res, nil
}

type turn struct {
	ctx        context.Context
	conv       *Conversation
	wantAudio  bool
	sink       AudioSink
	started    time.Time
	logger     *slog.Logger
	state      TurnState
	responseID string

	text       strings.Builder
	transcript strings.Builder
	audio      []byte
	audioDone  bool
	result     TurnResult
}

func (t *turn) modalities() []string {
	if t.wantAudio {
		return []string{events.ModalityText, events.ModalityAudio}
	}
	return []string{events.ModalityText}
}

func (t *turn) requestResponse() error {
	return t.conv.conn.Send(t.ctx, events.NewResponseCreate(events.ResponseCreatePayload{
		Modalities:   t.modalities(),
		Instructions: t.conv.config.Instructions,
	}))
}

func (t *turn) run(part events.ContentPart) (*TurnResult, error) {
	t.state = TurnAwaitingKickoff

	item := events.NewMessage(events.RoleUser, part)
	if err := t.conv.conn.Send(t.ctx, events.NewConversationItemCreate(item)); err != nil {
		return t.fail(err)
	}
	if err := t.requestResponse(); err != nil {
		return t.fail(err)
	}

	t.state = TurnStreaming
	for t.state == TurnStreaming {
		evt, err := t.conv.conn.Receive(t.ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrConnectionClosed) && t.audioDone:
				t.completeAudio()
				continue
			case errors.Is(err, ErrConnectionClosed):
				t.logger.Debug("connection closed mid-turn")
				t.result.Partial = true
				t.result.Text = t.text.String()
				t.result.Transcript = t.transcript.String()
				t.result.Audio = t.audio
				t.state = TurnComplete
				continue
			case t.ctx.Err() != nil:
				t.cancelResponse()
				return t.fail(fmt.Errorf("turn aborted: %w", err))
			default:
				return t.fail(err)
			}
		}

		if err := evt.Accept(t); err != nil {
			return t.fail(err)
		}
	}

	t.result.ResponseID = t.responseID
	return &t.result, nil
}

func (t *turn) fail(err error) (*TurnResult, error) {
	t.state = TurnErrored
	t.logger.Error("turn failed", slog.Any("err", err))
	return nil, err
}

// cancelResponse asks the server to stop generating. Failures are ignored.
func (t *turn) cancelResponse() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := t.conv.conn.Send(ctx, events.NewResponseCancel(t.responseID)); err != nil {
		t.logger.Debug("response.cancel failed", slog.Any("err", err))
	}
}

func (t *turn) complete(item events.ContentPart) {
	t.conv.history.Append(events.NewMessage(events.RoleAssistant, item))
	t.state = TurnComplete
}

func (t *turn) completeText(text string) {
	t.result.Text = text
	t.complete(events.Text(text))
}

func (t *turn) completeAudio() {
	t.result.Audio = t.audio
	if t.result.Transcript == "" {
		t.result.Transcript = t.transcript.String()
	}
	t.complete(events.Audio(t.audio, t.result.Transcript))
}

// ours reports whether an event tagged with responseID belongs to this turn.
// Untagged events are accepted. Tagged events arriving before this turn's
// response.created are the tail of an earlier response.
func (t *turn) ours(responseID string) bool {
	if responseID == "" {
		return true
	}
	return t.responseID != "" && responseID == t.responseID
}

func (t *turn) VisitError(e *events.ErrorEvent) error {
	return fmt.Errorf("server error: %w", e)
}

func (t *turn) VisitSessionCreated(*events.SessionCreatedEvent) error { return nil }
func (t *turn) VisitSessionUpdated(*events.SessionUpdatedEvent) error { return nil }

func (t *turn) VisitResponseCreated(e *events.ResponseCreatedEvent) error {
	if t.responseID == "" {
		t.responseID = e.Response.ID
		t.logger.Debug("response created", slog.String("response_id", e.Response.ID))
	}
	return nil
}

func (t *turn) VisitResponseDone(e *events.ResponseDoneEvent) error {
	if t.responseID == "" || e.Response.ID != t.responseID {
		return nil
	}

	switch e.Response.Status {
	case events.ResponseStatusFailed:
		reason := e.Response.Status
		if d := e.Response.StatusDetails; d != nil {
			if d.Error != nil {
				reason = d.Error.Error()
			} else if d.Reason != "" {
				reason = d.Reason
			}
		}
		return fmt.Errorf("%w: %s", ErrResponseFailed, reason)
	case events.ResponseStatusCompleted:
		if handled, err := t.handleToolCalls(e.Response.Output); handled || err != nil {
			return err
		}
	}

	// Fallback when the content done events were not observed.
	switch {
	case t.wantAudio && len(t.audio) > 0:
		t.completeAudio()
	case t.text.Len() > 0:
		t.completeText(t.text.String())
	default:
		if text := outputText(e.Response.Output); text != "" {
			t.completeText(text)
			return nil
		}
		t.result.Partial = true
		t.state = TurnComplete
	}
	return nil
}

// handleToolCalls answers completed function calls and requests a follow-up
// response. It reports whether the turn continues.
func (t *turn) handleToolCalls(output []events.OutputItem) (bool, error) {
	handler := t.conv.config.ToolHandler
	if handler == nil {
		return false, nil
	}

	var handled bool
	for _, o := range output {
		if o.Type != "function_call" || o.Status != "completed" {
			continue
		}
		result := tool.Output(handler, o.Name, o.Arguments)
		t.logger.Debug("tool call",
			slog.String("name", o.Name),
			slog.String("args", o.Arguments),
			slog.String("result", result),
		)
		if err := t.conv.conn.Send(t.ctx, events.NewConversationItemCreate(events.NewFunctionCallOutput(o.CallID, result))); err != nil {
			return true, err
		}
		handled = true
	}
	if !handled {
		return false, nil
	}

	t.responseID = ""
	return true, t.requestResponse()
}

func outputText(output []events.OutputItem) string {
	var sb strings.Builder
	for _, o := range output {
		if o.Type != "message" {
			continue
		}
		for _, c := range o.Content {
			switch c.Type {
			case events.ContentText:
				sb.WriteString(c.Text)
			case events.ContentAudio:
				sb.WriteString(c.Transcript)
			}
		}
	}
	return sb.String()
}

func (t *turn) VisitTextDelta(e *events.ResponseTextDeltaEvent) error {
	if t.ours(e.ResponseID) {
		t.text.WriteString(e.Delta)
	}
	return nil
}

func (t *turn) VisitTextDone(e *events.ResponseTextDoneEvent) error {
	if !t.ours(e.ResponseID) {
		return nil
	}
	text := e.Text
	if text == "" {
		text = t.text.String()
	}
	if t.wantAudio {
		// response.done ends an audio turn
		t.result.Text = text
		return nil
	}
	t.completeText(text)
	return nil
}

func (t *turn) VisitAudioDelta(e *events.ResponseAudioDeltaEvent) error {
	if !t.ours(e.ResponseID) {
		return nil
	}
	chunk, err := e.Audio()
	if err != nil {
		return &ProtocolError{Err: err}
	}
	if len(t.audio) == 0 {
		t.conv.config.Observer.FirstAudio(time.Since(t.started))
	}
	if t.sink != nil {
		if err := t.sink.Write(chunk); err != nil {
			return fmt.Errorf("playback: %w", err)
		}
	}
	t.audio = append(t.audio, chunk...)
	return nil
}

func (t *turn) VisitAudioDone(e *events.ResponseAudioDoneEvent) error {
	if !t.ours(e.ResponseID) {
		return nil
	}
	if len(t.audio) == 0 {
		t.state = TurnComplete
		return nil
	}
	// the transcript is finalized after the audio; response.done ends the turn
	t.audioDone = true
	return nil
}

func (t *turn) VisitAudioTranscriptDelta(e *events.ResponseAudioTranscriptDeltaEvent) error {
	if t.ours(e.ResponseID) {
		t.transcript.WriteString(e.Delta)
	}
	return nil
}

func (t *turn) VisitAudioTranscriptDone(e *events.ResponseAudioTranscriptDoneEvent) error {
	if t.ours(e.ResponseID) {
		t.result.Transcript = e.Transcript
	}
	return nil
}

func (t *turn) VisitSpeechStarted(*events.SpeechStartedEvent) error {
	t.logger.Debug("speech started")
	return nil
}

func (t *turn) VisitSpeechStopped(*events.SpeechStoppedEvent) error {
	t.logger.Debug("speech stopped")
	return nil
}

func (t *turn) VisitUnknown(e *events.UnknownEvent) error {
	t.logger.Debug("ignoring event", slog.String("type", e.EventType()))
	return nil
}
