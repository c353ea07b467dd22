package cache

import (
	"fmt"
	"strconv"

	"songbook-api-go/utils"
)

const (
	lyricsKeyPrefix = "lyrics:"
	parseKeyPrefix  = "parse:"
)

// LyricsKey is the key of the latest lyrics record for a song and language.
func LyricsKey(songID int64, languageCode string) string {
	return fmt.Sprintf("%s%d:%s", lyricsKeyPrefix, songID, languageCode)
}

// SongLyricsPrefix matches every lyrics key of a song.
func SongLyricsPrefix(songID int64) string {
	return lyricsKeyPrefix + strconv.FormatInt(songID, 10) + ":"
}

// ParseKey is the key of a parse result for content under the requested
// format name. Identical uploads share one entry.
func ParseKey(format, content string) string {
	return parseKeyPrefix + utils.ContentHash(format, content)
}
