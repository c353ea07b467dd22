// Package store persists songs, title translations and lyrics records in
// SQLite through gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"songbook-api-go/languages"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound is returned when a song, translation or lyrics record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput is wrapped by every validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a unique record already exists.
	ErrConflict = errors.New("record already exists")
)

// Repository provides access to the songbook database.
type Repository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (and migrates) a SQLite database at dsn.
func NewSQLiteRepository(dsn string, gormLogger logger.Interface) (*Repository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Song{}, &SongTranslation{}, &LyricsRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Repository{db: db}, nil
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply %q: %w", stmt, err)
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func validateLanguage(code string) error {
	if !languages.IsValid(code) {
		return fmt.Errorf("%w: unsupported language code %q", ErrInvalidInput, code)
	}
	return nil
}

// Songs

// ListSongs returns every song, newest first.
func (r *Repository) ListSongs(ctx context.Context) ([]Song, error) {
	songs := []Song{}
	if err := r.db.WithContext(ctx).Order("song_id DESC").Find(&songs).Error; err != nil {
		return nil, err
	}
	return songs, nil
}

// GetSong returns a song with its translations and lyrics.
func (r *Repository) GetSong(ctx context.Context, songID int64) (*Song, error) {
	var song Song
	err := r.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB { return db.Order("language_code ASC") }).
		Preload("Lyrics", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Where("song_id = ?", songID).
		Take(&song).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &song, nil
}

// SearchSongs matches keyword against artist and album title, case-insensitively.
func (r *Repository) SearchSongs(ctx context.Context, keyword string) ([]Song, error) {
	songs := []Song{}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return songs, nil
	}

	like := "%" + strings.ToLower(keyword) + "%"
	err := r.db.WithContext(ctx).
		Where("LOWER(artist) LIKE ? OR LOWER(album_title) LIKE ?", like, like).
		Order("song_id DESC").
		Find(&songs).Error
	if err != nil {
		return nil, err
	}
	return songs, nil
}

// CreateSong inserts a song and fills in its ID and timestamps.
func (r *Repository) CreateSong(ctx context.Context, song *Song) error {
	if song == nil {
		return fmt.Errorf("%w: song required", ErrInvalidInput)
	}
	song.Title = strings.TrimSpace(song.Title)
	if song.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if song.DefaultLanguageCode != nil {
		if err := validateLanguage(*song.DefaultLanguageCode); err != nil {
			return err
		}
	}
	song.SongID = 0
	song.Translations = nil
	song.Lyrics = nil
	return r.db.WithContext(ctx).Create(song).Error
}

// UpdateSong applies update to a song and returns the stored result.
func (r *Repository) UpdateSong(ctx context.Context, songID int64, update SongUpdate) (*Song, error) {
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		update.Title = &title
	}
	if update.DefaultLanguageCode != nil {
		if err := validateLanguage(*update.DefaultLanguageCode); err != nil {
			return nil, err
		}
	}

	var song Song
	if err := r.db.WithContext(ctx).Where("song_id = ?", songID).Take(&song).Error; err != nil {
		return nil, notFound(err)
	}

	if cols := update.columns(); len(cols) > 0 {
		if err := r.db.WithContext(ctx).Model(&song).Updates(cols).Error; err != nil {
			return nil, err
		}
	}

	if err := r.db.WithContext(ctx).Where("song_id = ?", songID).Take(&song).Error; err != nil {
		return nil, notFound(err)
	}
	return &song, nil
}

// DeleteSong removes a song together with its translations and lyrics.
func (r *Repository) DeleteSong(ctx context.Context, songID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("song_id = ?", songID).Delete(&LyricsRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("song_id = ?", songID).Delete(&SongTranslation{}).Error; err != nil {
			return err
		}
		res := tx.Where("song_id = ?", songID).Delete(&Song{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *Repository) songExists(ctx context.Context, songID int64) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Song{}).Where("song_id = ?", songID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// Translations

// AddTranslation stores a translated title. Each song has at most one
// translation per language.
func (r *Repository) AddTranslation(ctx context.Context, translation *SongTranslation) error {
	if translation == nil {
		return fmt.Errorf("%w: translation required", ErrInvalidInput)
	}
	translation.Title = strings.TrimSpace(translation.Title)
	if translation.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if err := validateLanguage(translation.LanguageCode); err != nil {
		return err
	}
	if err := r.songExists(ctx, translation.SongID); err != nil {
		return err
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&SongTranslation{}).
		Where("song_id = ? AND language_code = ?", translation.SongID, translation.LanguageCode).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: translation for %q", ErrConflict, translation.LanguageCode)
	}

	translation.TranslationID = 0
	return r.db.WithContext(ctx).Create(translation).Error
}

// GetTranslation returns a song's title translation for a language.
func (r *Repository) GetTranslation(ctx context.Context, songID int64, languageCode string) (*SongTranslation, error) {
	var translation SongTranslation
	err := r.db.WithContext(ctx).
		Where("song_id = ? AND language_code = ?", songID, languageCode).
		Take(&translation).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &translation, nil
}

// ListTranslations returns all title translations of a song ordered by language.
func (r *Repository) ListTranslations(ctx context.Context, songID int64) ([]SongTranslation, error) {
	translations := []SongTranslation{}
	err := r.db.WithContext(ctx).
		Where("song_id = ?", songID).
		Order("language_code ASC").
		Find(&translations).Error
	if err != nil {
		return nil, err
	}
	return translations, nil
}

// TitleLanguages returns the distinct languages a song's title is translated into.
func (r *Repository) TitleLanguages(ctx context.Context, songID int64) ([]string, error) {
	codes := []string{}
	err := r.db.WithContext(ctx).Model(&SongTranslation{}).
		Where("song_id = ?", songID).
		Order("language_code ASC").
		Distinct().
		Pluck("language_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}

// Lyrics

func validateLyrics(record *LyricsRecord) error {
	if err := validateLanguage(record.LanguageCode); err != nil {
		return err
	}
	if record.Payload != nil {
		if err := record.Payload.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	return nil
}

// AddLyrics stores a new lyrics record for a song.
func (r *Repository) AddLyrics(ctx context.Context, record *LyricsRecord) error {
	if record == nil {
		return fmt.Errorf("%w: lyrics required", ErrInvalidInput)
	}
	if err := validateLyrics(record); err != nil {
		return err
	}
	if err := r.songExists(ctx, record.SongID); err != nil {
		return err
	}
	record.LyricsID = 0
	return r.db.WithContext(ctx).Create(record).Error
}

// GetLyrics returns a lyrics record by ID.
func (r *Repository) GetLyrics(ctx context.Context, lyricsID int64) (*LyricsRecord, error) {
	var record LyricsRecord
	if err := r.db.WithContext(ctx).Where("lyrics_id = ?", lyricsID).Take(&record).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// UpdateLyrics applies update to a lyrics record and returns the stored result.
func (r *Repository) UpdateLyrics(ctx context.Context, lyricsID int64, update LyricsUpdate) (*LyricsRecord, error) {
	record, err := r.GetLyrics(ctx, lyricsID)
	if err != nil {
		return nil, err
	}

	if update.LanguageCode != nil {
		record.LanguageCode = *update.LanguageCode
	}
	if update.Payload != nil {
		record.Payload = update.Payload
	}
	if update.Source != nil {
		record.Source = update.Source
	}
	if update.Translator != nil {
		record.Translator = update.Translator
	}
	if err := validateLyrics(record); err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Save(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteLyrics removes a lyrics record and returns what was deleted.
func (r *Repository) DeleteLyrics(ctx context.Context, lyricsID int64) (*LyricsRecord, error) {
	record, err := r.GetLyrics(ctx, lyricsID)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&LyricsRecord{}, "lyrics_id = ?", lyricsID).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// LatestLyrics returns the most recently created lyrics of a song in a language.
func (r *Repository) LatestLyrics(ctx context.Context, songID int64, languageCode string) (*LyricsRecord, error) {
	var record LyricsRecord
	err := r.db.WithContext(ctx).
		Where("song_id = ? AND language_code = ?", songID, languageCode).
		Order("created_at DESC").
		Order("lyrics_id DESC").
		Take(&record).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// LyricsLanguages returns the distinct languages a song has lyrics in.
func (r *Repository) LyricsLanguages(ctx context.Context, songID int64) ([]string, error) {
	codes := []string{}
	err := r.db.WithContext(ctx).Model(&LyricsRecord{}).
		Where("song_id = ?", songID).
		Order("language_code ASC").
		Distinct().
		Pluck("language_code", &codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
