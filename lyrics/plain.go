package lyrics

import "strings"

// ParsePlain turns untimed text into one line per non-blank row.
func ParsePlain(content string) Payload {
	rows := strings.Split(strings.TrimSpace(normalizeNewlines(content)), "\n")

	payload := newPayload(len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row) == "" {
			continue
		}
		payload.Lines = append(payload.Lines, Line{Text: row})
	}
	return payload
}
