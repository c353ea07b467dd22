// Package youtube links songs to YouTube videos: it pulls video IDs out of
// pasted URLs, builds thumbnail/watch/embed URLs and fetches oEmbed metadata.
package youtube

import "regexp"

// PlaceholderThumbnail is returned when a song has no video.
const PlaceholderThumbnail = "https://via.placeholder.com/320x180?text=No+Thumbnail"

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^&\n?#]+)`),
	regexp.MustCompile(`youtube\.com/v/([^&\n?#]+)`),
}

// ExtractVideoID returns the video ID in a YouTube URL, or "" when the URL
// matches none of the known shapes.
func ExtractVideoID(url string) string {
	if url == "" {
		return ""
	}
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); m != nil && m[1] != "" {
			return m[1]
		}
	}
	return ""
}

// Quality is a thumbnail size.
type Quality string

const (
	QualityDefault Quality = "default" // 120x90
	QualityMedium  Quality = "mq"      // 320x180
	QualityHigh    Quality = "hq"      // 480x360
	QualitySD      Quality = "sd"      // 640x480
	QualityMaxRes  Quality = "maxres"  // 1280x720
)

// ParseQuality maps a query value to a Quality. Unknown values fall back to mq.
func ParseQuality(s string) Quality {
	switch q := Quality(s); q {
	case QualityDefault, QualityMedium, QualityHigh, QualitySD, QualityMaxRes:
		return q
	default:
		return QualityMedium
	}
}

// ThumbnailURL returns the webp thumbnail for a video.
func ThumbnailURL(videoID string, quality Quality) string {
	if videoID == "" {
		return PlaceholderThumbnail
	}
	prefix := string(ParseQuality(string(quality)))
	if prefix == string(QualityDefault) {
		prefix = ""
	}
	return "https://i.ytimg.com/vi_webp/" + videoID + "/" + prefix + "default.webp"
}

// VideoURL returns the watch page URL, or "" for an empty ID.
func VideoURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://www.youtube.com/watch?v=" + videoID
}

// EmbedURL returns the embeddable player URL, or "" for an empty ID.
func EmbedURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + videoID
}
