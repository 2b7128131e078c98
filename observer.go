package voicert

import "time"

type TurnOutcome string

const (
	TurnOutcomeComplete TurnOutcome = "complete"
	TurnOutcomePartial  TurnOutcome = "partial"
	TurnOutcomeError    TurnOutcome = "error"
)

// Observer receives notifications about traffic and turns. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	MessageSent(eventType string)
	MessageReceived(eventType string)
	TurnCompleted(outcome TurnOutcome, d time.Duration)
	// FirstAudio reports the delay between the start of a turn and its first
	// audio chunk.
	FirstAudio(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) MessageSent(string)                       {}
func (nopObserver) MessageReceived(string)                   {}
func (nopObserver) TurnCompleted(TurnOutcome, time.Duration) {}
func (nopObserver) FirstAudio(time.Duration)                 {}
