package workflow

import (
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// EventType はイベントの種類です。
type EventType string

const (
	EventState    EventType = "state"
	EventProgress EventType = "progress"
	EventPanel    EventType = "panel"
	EventWarning  EventType = "warning"
	EventError    EventType = "error"
)

// subscriberBuffer を超えて溜まったイベントは捨てるのだ。
const subscriberBuffer = 64

// Event は Controller から購読者へ送る通知です。
type Event struct {
	Type     EventType                 `json:"type"`
	RunID    string                    `json:"run_id"`
	State    domain.RunState           `json:"state,omitempty"`
	Progress domain.GenerationProgress `json:"progress"`
	Panel    *domain.PanelDescriptor   `json:"panel,omitempty"`
	Message  string                    `json:"message,omitempty"`
}

type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// publish は購読者を待たせないのだ。バッファが一杯の購読者にはそのイベントを届けません。
func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
