package lyrics

import (
	"regexp"
	"strconv"
	"strings"
)

// HH:MM:SS,mmm --> HH:MM:SS,mmm
var srtTimeRegex = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s+-->\s+(\d{2}):(\d{2}):(\d{2}),(\d{3})`)

// ParseSRT parses SubRip text into timed lines. Blocks whose timing line
// does not match are dropped.
func ParseSRT(content string) Payload {
	content = strings.TrimSpace(normalizeNewlines(content))
	if content == "" {
		return newPayload(0)
	}

	blocks := strings.Split(content, "\n\n")
	payload := newPayload(len(blocks))

	for _, block := range blocks {
		// runs of extra blank lines between cues leave stray newlines on a block
		rows := strings.Split(strings.Trim(block, "\n"), "\n")
		if len(rows) < 3 {
			continue
		}

		match := srtTimeRegex.FindStringSubmatch(rows[1])
		if match == nil {
			continue
		}

		start := srtMillis(match[1:5])
		end := srtMillis(match[5:9])

		payload.Lines = append(payload.Lines, Line{
			Text:    strings.Join(rows[2:], "\n"),
			StartMs: intPtr(start),
			EndMs:   EndAt(end),
		})
	}

	return payload
}

// srtMillis converts [hh mm ss mmm] to milliseconds. The last field is
// already milliseconds and is added as is.
func srtMillis(parts []string) int {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return h*3600000 + m*60000 + s*1000 + ms
}
