package cw

// MaxMessage is the default capacity of a Message, in characters.
const MaxMessage = 70000

// Message is a capacity-bounded character buffer. Writes past the capacity
// are dropped, so Len never exceeds Cap.
type Message struct {
	runes    []rune
	capacity int
}

// NewMessage returns an empty message holding at most capacity characters.
func NewMessage(capacity int) *Message {
	if capacity < 0 {
		capacity = 0
	}
	return &Message{capacity: capacity}
}

// Load replaces the contents with s, truncated to the capacity.
func (m *Message) Load(s string) {
	m.runes = m.runes[:0]
	for _, r := range s {
		if !m.Push(r) {
			return
		}
	}
}

// Push appends r. It reports false, leaving the message unchanged, when full.
func (m *Message) Push(r rune) bool {
	if len(m.runes) >= m.capacity {
		return false
	}
	m.runes = append(m.runes, r)
	return true
}

// Last returns the final character, if any.
func (m *Message) Last() (rune, bool) {
	if len(m.runes) == 0 {
		return 0, false
	}
	return m.runes[len(m.runes)-1], true
}

// Runes exposes the stored characters. The slice must not be modified.
func (m *Message) Runes() []rune {
	return m.runes
}

func (m *Message) Len() int { return len(m.runes) }

func (m *Message) Cap() int { return m.capacity }

func (m *Message) String() string { return string(m.runes) }

// Reset empties the message, keeping its capacity.
func (m *Message) Reset() {
	m.runes = m.runes[:0]
}
