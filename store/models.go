package store

import (
	"time"

	"songbook-api-go/lyrics"
)

// Song mirrors the songs table.
type Song struct {
	SongID              int64     `gorm:"column:song_id;primaryKey;autoIncrement" json:"song_id"`
	Title               string    `gorm:"not null" json:"title"`
	Artist              *string   `json:"artist"`
	AlbumTitle          *string   `json:"album_title"`
	Composer            *string   `json:"composer"`
	Lyricist            *string   `json:"lyricist"`
	Arranger            *string   `json:"arranger"`
	DefaultLanguageCode *string   `json:"default_language_code"`
	YouTubeVideoID      *string   `gorm:"column:youtube_video_id" json:"youtube_video_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`

	Translations []SongTranslation `gorm:"foreignKey:SongID;references:SongID;constraint:OnDelete:CASCADE" json:"song_translations,omitempty"`
	Lyrics       []LyricsRecord    `gorm:"foreignKey:SongID;references:SongID;constraint:OnDelete:CASCADE" json:"lyrics,omitempty"`
}

func (Song) TableName() string {
	return "songs"
}

// SongTranslation mirrors the song_translations table: one translated title
// per song and language.
type SongTranslation struct {
	TranslationID int64     `gorm:"column:translation_id;primaryKey;autoIncrement" json:"translation_id"`
	SongID        int64     `gorm:"not null;uniqueIndex:idx_translation_song_lang" json:"song_id"`
	LanguageCode  string    `gorm:"not null;uniqueIndex:idx_translation_song_lang" json:"language_code"`
	Title         string    `gorm:"not null" json:"title"`
	Source        *string   `json:"source"`
	Translator    *string   `json:"translator"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (SongTranslation) TableName() string {
	return "song_translations"
}

// LyricsRecord mirrors the lyrics table. Payload is stored as JSON text.
type LyricsRecord struct {
	LyricsID     int64           `gorm:"column:lyrics_id;primaryKey;autoIncrement" json:"lyrics_id"`
	SongID       int64           `gorm:"not null;index:idx_lyrics_song_lang" json:"song_id"`
	LanguageCode string          `gorm:"not null;index:idx_lyrics_song_lang" json:"language_code"`
	Payload      *lyrics.Payload `gorm:"serializer:json" json:"payload"`
	Source       *string         `json:"source"`
	Translator   *string         `json:"translator"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (LyricsRecord) TableName() string {
	return "lyrics"
}

// SongUpdate carries the song fields to change. Nil fields are left alone.
type SongUpdate struct {
	Title               *string `json:"title"`
	Artist              *string `json:"artist"`
	AlbumTitle          *string `json:"album_title"`
	Composer            *string `json:"composer"`
	Lyricist            *string `json:"lyricist"`
	Arranger            *string `json:"arranger"`
	DefaultLanguageCode *string `json:"default_language_code"`
	YouTubeVideoID      *string `json:"youtube_video_id"`
}

func (u SongUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = *v
		}
	}
	set("title", u.Title)
	set("artist", u.Artist)
	set("album_title", u.AlbumTitle)
	set("composer", u.Composer)
	set("lyricist", u.Lyricist)
	set("arranger", u.Arranger)
	set("default_language_code", u.DefaultLanguageCode)
	set("youtube_video_id", u.YouTubeVideoID)
	return cols
}

// LyricsUpdate carries the lyrics fields to change. Nil fields are left alone.
type LyricsUpdate struct {
	LanguageCode *string         `json:"language_code"`
	Payload      *lyrics.Payload `json:"payload"`
	Source       *string         `json:"source"`
	Translator   *string         `json:"translator"`
}
