package lyrics

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// [mm:ss] or [mm:ss.f], [mm:ss.ff], [mm:ss.fff] at the start of a line
	lrcLineRegex = regexp.MustCompile(`^\[(\d{2}):(\d{2})(?:\.(\d{1,3}))?\](.*)$`)

	// Header tags: [ar:Artist], [ti:Title], [offset:+200]
	lrcTagRegex = regexp.MustCompile(`^\[([a-zA-Z]+):([^\]]*)\]$`)
)

type lrcStamp struct {
	startMs int
	text    string
}

// ParseLRC parses line-timed LRC text. Each line ends where the next one
// starts; the final line's end is open (null). Lines without a leading
// timestamp are skipped.
func ParseLRC(content string) Payload {
	rows := strings.Split(normalizeNewlines(content), "\n")

	stamps := make([]lrcStamp, 0, len(rows))
	for _, row := range rows {
		match := lrcLineRegex.FindStringSubmatch(strings.TrimLeft(row, " \t"))
		if match == nil {
			continue
		}

		minutes, _ := strconv.Atoi(match[1])
		seconds, _ := strconv.Atoi(match[2])
		millis := 0
		if match[3] != "" {
			// "5" -> "500", "12" -> "120"
			millis, _ = strconv.Atoi(match[3] + strings.Repeat("0", 3-len(match[3])))
		}

		stamps = append(stamps, lrcStamp{
			startMs: minutes*60000 + seconds*1000 + millis,
			text:    strings.TrimSpace(match[4]),
		})
	}

	payload := newPayload(len(stamps))
	for i, stamp := range stamps {
		end := OpenEnd()
		if i+1 < len(stamps) {
			end = EndAt(stamps[i+1].startMs)
		}
		payload.Lines = append(payload.Lines, Line{
			Text:    stamp.text,
			StartMs: intPtr(stamp.startMs),
			EndMs:   end,
		})
	}

	return payload
}

// LRCMetadata returns the header tags of an LRC document keyed by the
// lower-cased tag name. Timestamps are not tags and are ignored.
func LRCMetadata(content string) map[string]string {
	metadata := make(map[string]string)
	for _, row := range strings.Split(normalizeNewlines(content), "\n") {
		match := lrcTagRegex.FindStringSubmatch(strings.TrimSpace(row))
		if match == nil {
			continue
		}
		metadata[strings.ToLower(match[1])] = strings.TrimSpace(match[2])
	}
	return metadata
}
