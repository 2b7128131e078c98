package voicert

import (
	"sync"

	"github.com/codewandler/voicert-go/events"
)

// History is the local, append-only record of a conversation. Item 0 is
// always the system prompt.
type History struct {
	mu    sync.RWMutex
	items []events.ConversationItem
}

func NewHistory(systemPrompt string) *History {
	return &History{
		items: []events.ConversationItem{
			events.NewMessage(events.RoleSystem, events.InputText(systemPrompt)),
		},
	}
}

func (h *History) Append(item events.ConversationItem) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = append(h.items, item)
}

// Items returns a copy of all items.
func (h *History) Items() []events.ConversationItem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]events.ConversationItem, len(h.items))
	copy(out, h.items)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.items)
}

func (h *History) At(i int) (events.ConversationItem, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i < 0 || i >= len(h.items) {
		return events.ConversationItem{}, false
	}
	return h.items[i], true
}

func (h *History) Last() events.ConversationItem {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.items[len(h.items)-1]
}
