package lyrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

type endState uint8

const (
	endUnset endState = iota
	endOpen
	endAt
)

// EndTime is the exclusive end offset of a line in milliseconds.
// The zero value means the field does not apply (untimed line).
type EndTime struct {
	ms    int
	state endState
}

// EndAt returns an end time fixed at ms.
func EndAt(ms int) EndTime {
	return EndTime{ms: ms, state: endAt}
}

// OpenEnd returns an end time that is explicitly unknown (JSON null).
func OpenEnd() EndTime {
	return EndTime{state: endOpen}
}

// Millis returns the end offset and whether it is known.
func (e EndTime) Millis() (int, bool) {
	return e.ms, e.state == endAt
}

// IsOpen reports whether the end was set to null.
func (e EndTime) IsOpen() bool {
	return e.state == endOpen
}

// IsSet reports whether the field applies at all.
func (e EndTime) IsSet() bool {
	return e.state != endUnset
}

func (e EndTime) String() string {
	switch e.state {
	case endAt:
		return strconv.Itoa(e.ms)
	case endOpen:
		return "null"
	default:
		return "unset"
	}
}

// RubyAnnotation is a reading attached to the runes [S, E) of a line's text.
type RubyAnnotation struct {
	S  int    `json:"s"`
	E  int    `json:"e"`
	RT string `json:"rt"`
}

// Validate checks the annotation against the text it decorates.
// Indices count runes, not bytes.
func (r RubyAnnotation) Validate(text string) error {
	n := utf8.RuneCountInString(text)
	if r.S < 0 || r.S >= r.E || r.E > n {
		return fmt.Errorf("ruby span [%d,%d) out of range for text of length %d", r.S, r.E, n)
	}
	if r.RT == "" {
		return fmt.Errorf("ruby span [%d,%d) has empty annotation", r.S, r.E)
	}
	return nil
}

// Line is one displayable lyrics unit.
type Line struct {
	Text    string
	StartMs *int
	EndMs   EndTime
	Ruby    []RubyAnnotation
}

// Start returns the start offset and whether the line is timed.
func (l Line) Start() (int, bool) {
	if l.StartMs == nil {
		return 0, false
	}
	return *l.StartMs, true
}

// Validate checks every ruby annotation on the line.
func (l Line) Validate() error {
	for _, r := range l.Ruby {
		if err := r.Validate(l.Text); err != nil {
			return err
		}
	}
	return nil
}

type lineJSON struct {
	Text    string           `json:"text"`
	StartMs *int             `json:"start_ms,omitempty"`
	EndMs   json.RawMessage  `json:"end_ms,omitempty"`
	Ruby    []RubyAnnotation `json:"ruby,omitempty"`
}

var jsonNull = []byte("null")

func (l Line) MarshalJSON() ([]byte, error) {
	out := lineJSON{
		Text:    l.Text,
		StartMs: l.StartMs,
		Ruby:    l.Ruby,
	}
	switch l.EndMs.state {
	case endAt:
		out.EndMs = json.RawMessage(strconv.Itoa(l.EndMs.ms))
	case endOpen:
		out.EndMs = json.RawMessage(jsonNull)
	}
	return json.Marshal(out)
}

func (l *Line) UnmarshalJSON(data []byte) error {
	var in lineJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	l.Text = in.Text
	l.StartMs = in.StartMs
	l.Ruby = in.Ruby
	l.EndMs = EndTime{}

	raw := bytes.TrimSpace(in.EndMs)
	switch {
	case len(raw) == 0:
	case bytes.Equal(raw, jsonNull):
		l.EndMs = OpenEnd()
	default:
		var ms int
		if err := json.Unmarshal(raw, &ms); err != nil {
			return fmt.Errorf("end_ms: %w", err)
		}
		l.EndMs = EndAt(ms)
	}
	return nil
}

// Payload is the result of a parse: lines in display order.
type Payload struct {
	Lines []Line `json:"lines"`
}

func (p Payload) MarshalJSON() ([]byte, error) {
	lines := p.Lines
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(struct {
		Lines []Line `json:"lines"`
	}{lines})
}

// IsTimed reports whether any line carries a start time.
func (p Payload) IsTimed() bool {
	for _, l := range p.Lines {
		if l.StartMs != nil {
			return true
		}
	}
	return false
}

// Duration returns the latest known offset in the payload, in milliseconds.
func (p Payload) Duration() int {
	max := 0
	for _, l := range p.Lines {
		if start, ok := l.Start(); ok && start > max {
			max = start
		}
		if end, ok := l.EndMs.Millis(); ok && end > max {
			max = end
		}
	}
	return max
}

// Validate checks ruby annotations on every line.
func (p Payload) Validate() error {
	for i, l := range p.Lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
	}
	return nil
}

// TitlePayload is a song title with optional ruby annotations.
type TitlePayload struct {
	Text string           `json:"text"`
	Ruby []RubyAnnotation `json:"ruby,omitempty"`
}

// Validate checks the title's ruby annotations.
func (t TitlePayload) Validate() error {
	for _, r := range t.Ruby {
		if err := r.Validate(t.Text); err != nil {
			return err
		}
	}
	return nil
}

func newPayload(capacity int) Payload {
	return Payload{Lines: make([]Line, 0, capacity)}
}

func intPtr(v int) *int {
	return &v
}
