// Package lyrics detects and parses SRT, LRC and plain-text lyrics into a
// time-coded line model.
//
// All functions are pure: they never fail, never log and keep no state
// between calls, so they are safe for concurrent use. Malformed cues and
// lines are dropped rather than reported.
package lyrics

import "strings"

// ParseAuto detects the format of content and parses it with exactly one
// of ParseSRT, ParseLRC or ParsePlain.
func ParseAuto(content string) Payload {
	trimmed := strings.TrimSpace(content)

	switch Detect(trimmed) {
	case FormatSRT:
		return ParseSRT(trimmed)
	case FormatLRC:
		return ParseLRC(trimmed)
	default:
		return ParsePlain(trimmed)
	}
}

// Parse parses content as format, detecting it when format is FormatAuto.
func Parse(content string, format Format) Payload {
	switch format {
	case FormatSRT:
		return ParseSRT(content)
	case FormatLRC:
		return ParseLRC(content)
	case FormatPlain:
		return ParsePlain(content)
	default:
		return ParseAuto(content)
	}
}

// normalizeNewlines rewrites CRLF and lone CR line endings as LF.
func normalizeNewlines(content string) string {
	if !strings.Contains(content, "\r") {
		return content
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}
