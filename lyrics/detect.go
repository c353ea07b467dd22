package lyrics

import (
	"fmt"
	"strings"
)

// Format identifies a lyrics text convention.
type Format int

const (
	// FormatAuto asks Parse to detect the format itself.
	FormatAuto Format = iota
	FormatSRT
	FormatLRC
	FormatPlain
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "srt"
	case FormatLRC:
		return "lrc"
	case FormatPlain:
		return "plain"
	default:
		return "auto"
	}
}

// ParseFormat maps a format name (case-insensitive) to a Format.
// An empty name means auto detection.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return FormatAuto, nil
	case "srt":
		return FormatSRT, nil
	case "lrc":
		return FormatLRC, nil
	case "plain", "txt", "text":
		return FormatPlain, nil
	default:
		return FormatAuto, fmt.Errorf("unknown lyrics format: %q", name)
	}
}

// Detect classifies content as SRT, LRC or Plain. First match wins:
// an SRT arrow anywhere, then both square brackets anywhere.
func Detect(content string) Format {
	trimmed := strings.TrimSpace(content)

	if strings.Contains(trimmed, "-->") {
		return FormatSRT
	}
	if strings.Contains(trimmed, "[") && strings.Contains(trimmed, "]") {
		return FormatLRC
	}
	return FormatPlain
}
