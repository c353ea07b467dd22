package lyrics

// ActiveLine returns the index of the line showing at positionMs, or -1.
//
// A line is showing from its start up to (not including) its end. A line
// with an open end shows until a later-starting line begins. Untimed
// payloads never have an active line. When two lines share a start, the
// later one wins.
func ActiveLine(p Payload, positionMs int) int {
	active := -1
	bestStart := -1

	for i, line := range p.Lines {
		start, ok := line.Start()
		if !ok || start > positionMs || start < bestStart {
			continue
		}
		if end, known := line.EndMs.Millis(); known && positionMs >= end {
			continue
		}
		if !line.EndMs.IsSet() || line.EndMs.IsOpen() {
			if supersededBefore(p, start, positionMs) {
				continue
			}
		}
		active = i
		bestStart = start
	}

	return active
}

// supersededBefore reports whether some line starts in (start, positionMs].
func supersededBefore(p Payload, start, positionMs int) bool {
	for _, other := range p.Lines {
		if s, ok := other.Start(); ok && s > start && s <= positionMs {
			return true
		}
	}
	return false
}
