package lyrics

import "testing"

func TestActiveLine(t *testing.T) {
	lrc := ParseLRC("[00:01.00]A\n[00:05.00]B\n[00:10.00]C")

	tests := []struct {
		name     string
		position int
		expected int
	}{
		{"before first line", 500, -1},
		{"first line start", 1000, 0},
		{"inside first line", 4999, 0},
		{"boundary is exclusive", 5000, 1},
		{"open final line", 60000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActiveLine(lrc, tt.position); got != tt.expected {
				t.Errorf("ActiveLine(%d) = %d, want %d", tt.position, got, tt.expected)
			}
		})
	}
}

func TestActiveLine_SRTGaps(t *testing.T) {
	srt := ParseSRT("1\n00:00:01,000 --> 00:00:02,000\nOne\n\n2\n00:00:05,000 --> 00:00:06,000\nTwo")

	if got := ActiveLine(srt, 1500); got != 0 {
		t.Errorf("Expected line 0, got %d", got)
	}
	if got := ActiveLine(srt, 3000); got != -1 {
		t.Errorf("Expected no active line in the gap, got %d", got)
	}
	if got := ActiveLine(srt, 7000); got != -1 {
		t.Errorf("Expected no active line after the last cue, got %d", got)
	}
}

func TestActiveLine_OpenEndSuperseded(t *testing.T) {
	payload := Payload{Lines: []Line{
		{Text: "open", StartMs: intPtr(0), EndMs: OpenEnd()},
		{Text: "short", StartMs: intPtr(5000), EndMs: EndAt(6000)},
	}}

	if got := ActiveLine(payload, 7000); got != -1 {
		t.Errorf("Expected open line to stop once a later line started, got %d", got)
	}
	if got := ActiveLine(payload, 2000); got != 0 {
		t.Errorf("Expected open line active before the next start, got %d", got)
	}
}

func TestActiveLine_Untimed(t *testing.T) {
	if got := ActiveLine(ParsePlain("A\nB"), 0); got != -1 {
		t.Errorf("Expected -1 for untimed payload, got %d", got)
	}
}
