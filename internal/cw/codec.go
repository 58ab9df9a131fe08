package cw

import (
	"strings"
	"unicode"
)

// Codec converts between text and Morse strings. It holds no state between
// calls: every Encode or Decode builds its own message and decoder.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a Codec using it.
func NewCodec(cfg Config) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Codec{config: cfg}, nil
}

// Encode converts text with DefaultConfig.
func Encode(text string) string {
	return (&Codec{config: DefaultConfig()}).Encode(text)
}

// Decode converts a Morse string with DefaultConfig.
func Decode(morse string) string {
	return (&Codec{config: DefaultConfig()}).Decode(morse)
}

// Config returns the codec configuration.
func (c *Codec) Config() Config {
	return c.config
}

// Encode returns the Morse code for text: one token of dits and dahs per
// character, tokens separated by a single space. Characters outside the
// alphabet are skipped. The input is bounded by MaxMessage characters and
// ends at the first word separator after the first encoded character.
func (c *Codec) Encode(text string) string {
	msg := NewMessage(c.config.MaxMessage)
	msg.Load(text)

	var b strings.Builder
	for _, r := range msg.Runes() {
		if unicode.IsSpace(r) {
			if b.Len() > 0 {
				break
			}
			continue
		}
		code, ok := CodeFor(r)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(code)
	}

	return strings.TrimSpace(b.String())
}

// Decode rebuilds text from a Morse string by replaying it as timed signal
// events through a fresh Decoder. Unknown symbol characters are ignored.
func (c *Codec) Decode(morse string) string {
	cfg := c.config
	cfg.AdaptiveTiming = false

	d := newDecoder(cfg)
	for _, ev := range Synthesize(morse, cfg.Timing.Unit) {
		d.Feed(ev)
	}
	return d.Message()
}
