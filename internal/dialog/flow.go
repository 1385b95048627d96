package dialog

import (
	"strings"
	"time"

	"github.com/b2bhub/quoteflow/internal/models"
)

// Flow defines a multi-turn dialog. Registered flows act as prototypes;
// the engine clones one per session on activation so concurrent
// sessions never share slot state.
type Flow struct {
	Name               string
	TriggerIntents     []string
	Slots              []*Slot
	CompletionMessage  string
	ConfirmationPrompt string

	// OnComplete, when set, receives the filled slots once the flow
	// finishes. A failing callback is logged and does not change the
	// turn's result.
	OnComplete func(filled map[string]string) error

	Status    models.DialogStatus
	StartedAt time.Time
}

// nextEmptySlot returns the next unfilled slot, required slots first.
func (f *Flow) nextEmptySlot() *Slot {
	for _, s := range f.Slots {
		if s.Required && !s.filled {
			return s
		}
	}
	for _, s := range f.Slots {
		if !s.Required && !s.filled {
			return s
		}
	}
	return nil
}

func (f *Flow) nextRequiredEmptySlot() *Slot {
	for _, s := range f.Slots {
		if s.Required && !s.filled {
			return s
		}
	}
	return nil
}

// fillSlot normalizes then validates a candidate value, counting the
// attempt either way.
func (f *Flow) fillSlot(name, value string) bool {
	s := f.slot(name)
	if s == nil {
		return false
	}
	s.attempts++
	normalized := s.normalize(value)
	if !s.validate(normalized) {
		return false
	}
	s.value = normalized
	s.filled = true
	return true
}

func (f *Flow) slot(name string) *Slot {
	for _, s := range f.Slots {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// filledSlots returns name-to-value for every filled slot, in slot
// order.
func (f *Flow) filledSlots() map[string]string {
	filled := make(map[string]string)
	for _, s := range f.Slots {
		if s.filled {
			filled[s.Name] = s.value
		}
	}
	return filled
}

func (f *Flow) isComplete() bool {
	for _, s := range f.Slots {
		if s.Required && !s.filled {
			return false
		}
	}
	return true
}

func (f *Flow) reset() {
	for _, s := range f.Slots {
		s.reset()
	}
	f.Status = models.DialogNotStarted
	f.StartedAt = time.Time{}
}

func (f *Flow) clone() *Flow {
	c := *f
	c.Slots = make([]*Slot, len(f.Slots))
	for i, s := range f.Slots {
		c.Slots[i] = s.clone()
	}
	return &c
}

// formatMessage substitutes {slot_name} placeholders with filled
// values.
func formatMessage(template string, filled map[string]string) string {
	pairs := make([]string, 0, len(filled)*2)
	for name, value := range filled {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
