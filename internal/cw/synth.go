package cw

import (
	"strings"
	"time"
)

// Synthesized period lengths, in reference units.
const (
	synthDitUnits       = 1
	synthDahUnits       = 3
	synthElementGap     = 1
	synthCharGapUnits   = 3
	synthWordGapUnits   = 7
	synthEventsPerToken = 2
)

// Synthesize turns a Morse string into the key-down/key-up periods a sender
// would produce at the given unit.
//
// The string is split on single spaces. Each '.' becomes a 1-unit tone and
// each '-' a 3-unit tone, both followed by a 1-unit silence; other characters
// produce nothing. A 3-unit silence follows every token. An empty token, from
// a leading, trailing or doubled space, becomes a 7-unit silence.
func Synthesize(morse string, unit time.Duration) []Event {
	tokens := strings.Split(morse, " ")
	events := make([]Event, 0, len(morse)*synthEventsPerToken+len(tokens))

	for _, token := range tokens {
		if token == "" {
			events = append(events, Event{Duration: synthWordGapUnits * unit})
			continue
		}

		for _, ch := range token {
			switch ch {
			case '.':
				events = append(events,
					Event{Duration: synthDitUnits * unit, Tone: true},
					Event{Duration: synthElementGap * unit})
			case '-':
				events = append(events,
					Event{Duration: synthDahUnits * unit, Tone: true},
					Event{Duration: synthElementGap * unit})
			}
		}

		events = append(events, Event{Duration: synthCharGapUnits * unit})
	}

	return events
}
