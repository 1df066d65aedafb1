package frame

import (
	"fmt"

	"example.com/puyo-bridge/internal/puyo"
)

const eventLen = 7

// eventFlags is the wire letter for each position of the event string.
var eventFlags = [eventLen]byte{'W', 'G', 'P', 'D', 'A', 'O', 'E'}

// Event is the set of things the peer should react to in a frame.
type Event struct {
	Appeared      bool // W: next piece appeared
	Grounded      bool // G
	PreDecision   bool // P
	Decision      bool // D
	DecisionAgain bool // A
	OjamaDropped  bool // O
	Erased        bool // E
}

func (e Event) flags() [eventLen]bool {
	return [eventLen]bool{e.Appeared, e.Grounded, e.PreDecision, e.Decision, e.DecisionAgain, e.OjamaDropped, e.Erased}
}

func (e Event) String() string {
	var b [eventLen]byte
	for i, set := range e.flags() {
		b[i] = '-'
		if set {
			b[i] = eventFlags[i]
		}
	}
	return string(b[:])
}

// HasAny reports whether any flag is set.
func (e Event) HasAny() bool {
	return e != Event{}
}

// ParseEvent reads a 7-character flag string. Any character other than '-'
// counts as set.
func ParseEvent(s string) (Event, error) {
	if len(s) != eventLen {
		return Event{}, fmt.Errorf("%w: event %q is not %d flags", puyo.ErrMalformedToken, s, eventLen)
	}
	set := func(i int) bool { return s[i] != '-' }
	return Event{
		Appeared:      set(0),
		Grounded:      set(1),
		PreDecision:   set(2),
		Decision:      set(3),
		DecisionAgain: set(4),
		OjamaDropped:  set(5),
		Erased:        set(6),
	}, nil
}
