package lyrics

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLineMarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		line     Line
		expected string
	}{
		{
			name:     "untimed",
			line:     Line{Text: "A"},
			expected: `{"text":"A"}`,
		},
		{
			name:     "open end",
			line:     Line{Text: "A", StartMs: intPtr(0), EndMs: OpenEnd()},
			expected: `{"text":"A","start_ms":0,"end_ms":null}`,
		},
		{
			name:     "fixed end",
			line:     Line{Text: "A", StartMs: intPtr(1000), EndMs: EndAt(2500)},
			expected: `{"text":"A","start_ms":1000,"end_ms":2500}`,
		},
		{
			name: "ruby",
			line: Line{Text: "開く", Ruby: []RubyAnnotation{{S: 0, E: 1, RT: "ひら"}}},
			expected: `{"text":"開く","ruby":[{"s":0,"e":1,"rt":"ひら"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.line)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestLineUnmarshalJSON_EndStates(t *testing.T) {
	var payload Payload
	data := `{"lines":[{"text":"a"},{"text":"b","start_ms":1,"end_ms":null},{"text":"c","start_ms":2,"end_ms":9}]}`
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if len(payload.Lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(payload.Lines))
	}
	if payload.Lines[0].EndMs.IsSet() || payload.Lines[0].StartMs != nil {
		t.Errorf("Expected untimed first line")
	}
	if !payload.Lines[1].EndMs.IsOpen() {
		t.Errorf("Expected explicit null to decode as open end")
	}
	if end, ok := payload.Lines[2].EndMs.Millis(); !ok || end != 9 {
		t.Errorf("Expected end 9, got %v", payload.Lines[2].EndMs)
	}
}

func TestLineUnmarshalJSON_BadEnd(t *testing.T) {
	var line Line
	err := json.Unmarshal([]byte(`{"text":"a","end_ms":"soon"}`), &line)
	if err == nil || !strings.Contains(err.Error(), "end_ms") {
		t.Errorf("Expected end_ms error, got %v", err)
	}
}

func TestRubyAnnotationValidate(t *testing.T) {
	tests := []struct {
		name    string
		ruby    RubyAnnotation
		text    string
		wantErr bool
	}{
		{"valid multibyte", RubyAnnotation{S: 0, E: 2, RT: "ひら"}, "開いた", false},
		{"end equals length", RubyAnnotation{S: 2, E: 3, RT: "x"}, "開いた", false},
		{"empty span", RubyAnnotation{S: 1, E: 1, RT: "x"}, "abc", true},
		{"negative start", RubyAnnotation{S: -1, E: 1, RT: "x"}, "abc", true},
		{"past end", RubyAnnotation{S: 0, E: 4, RT: "x"}, "abc", true},
		{"empty rt", RubyAnnotation{S: 0, E: 1, RT: ""}, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ruby.Validate(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPayloadValidate(t *testing.T) {
	payload := Payload{Lines: []Line{
		{Text: "ok"},
		{Text: "ab", Ruby: []RubyAnnotation{{S: 0, E: 5, RT: "x"}}},
	}}

	err := payload.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "line 1:") {
		t.Errorf("Expected error on line 1, got %v", err)
	}
}

func TestPayloadDurationAndTimed(t *testing.T) {
	lrc := ParseLRC("[00:00.00]A\n[00:05.00]B\n[00:10.00]C")
	if !lrc.IsTimed() {
		t.Error("Expected LRC payload to be timed")
	}
	if got := lrc.Duration(); got != 10000 {
		t.Errorf("Expected duration 10000, got %d", got)
	}

	plain := ParsePlain("A\nB")
	if plain.IsTimed() {
		t.Error("Expected plain payload to be untimed")
	}
	if plain.Duration() != 0 {
		t.Errorf("Expected zero duration, got %d", plain.Duration())
	}
}

func TestTitlePayloadValidate(t *testing.T) {
	title := TitlePayload{Text: "Lemon", Ruby: []RubyAnnotation{{S: 0, E: 5, RT: "レモン"}}}
	if err := title.Validate(); err != nil {
		t.Errorf("Expected valid title, got %v", err)
	}
	title.Ruby[0].E = 6
	if err := title.Validate(); err == nil {
		t.Error("Expected error for span past the end")
	}
}
