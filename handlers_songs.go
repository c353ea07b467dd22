package main

import (
	"errors"
	"net/http"
	"strings"

	"songbook-api-go/logcolors"
	"songbook-api-go/services/youtube"
	"songbook-api-go/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var errInvalidYouTubeURL = errors.New("not a recognised YouTube URL")

func newSongView(song store.Song) SongView {
	view := SongView{Song: song}
	if song.YouTubeVideoID != nil && *song.YouTubeVideoID != "" {
		id := *song.YouTubeVideoID
		view.ThumbnailURL = youtube.ThumbnailURL(id, youtube.QualityMedium)
		view.VideoURL = youtube.VideoURL(id)
		view.EmbedURL = youtube.EmbedURL(id)
	}
	return view
}

func newSongViews(songs []store.Song) []SongView {
	views := make([]SongView, 0, len(songs))
	for _, s := range songs {
		views = append(views, newSongView(s))
	}
	return views
}

// resolveVideoID folds youtube_url into the update's video id. An empty URL
// clears the video.
func (req *SongRequest) resolveVideoID() error {
	if req.YouTubeURL == nil {
		return nil
	}
	url := strings.TrimSpace(*req.YouTubeURL)
	if url == "" {
		req.YouTubeVideoID = &url
		return nil
	}
	id := youtube.ExtractVideoID(url)
	if id == "" {
		return errInvalidYouTubeURL
	}
	req.YouTubeVideoID = &id
	return nil
}

func listSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := repo.ListSongs(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(newSongViews(songs))
}

func searchSongs(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		Respond(w, r).Fail(http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}

	songs, err := repo.SearchSongs(r.Context(), q)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(newSongViews(songs))
}

func getSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	song, err := repo.GetSong(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(newSongView(*song))
}

func createSong(w http.ResponseWriter, r *http.Request) {
	var req SongRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}
	if err := req.resolveVideoID(); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	song := store.Song{
		Artist:              req.Artist,
		AlbumTitle:          req.AlbumTitle,
		Composer:            req.Composer,
		Lyricist:            req.Lyricist,
		Arranger:            req.Arranger,
		DefaultLanguageCode: req.DefaultLanguageCode,
		YouTubeVideoID:      req.YouTubeVideoID,
	}
	if req.Title != nil {
		song.Title = *req.Title
	}

	if err := repo.CreateSong(r.Context(), &song); err != nil {
		writeStoreError(w, r, err)
		return
	}

	log.Infof("%s Created song %d %q", logcolors.LogSongs, song.SongID, song.Title)
	Respond(w, r).Status(http.StatusCreated, newSongView(song))
}

func updateSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	var req SongRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}
	if err := req.resolveVideoID(); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	song, err := repo.UpdateSong(r.Context(), id, req.SongUpdate)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	log.Infof("%s Updated song %d", logcolors.LogSongs, id)
	Respond(w, r).JSON(newSongView(*song))
}

func deleteSong(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	if err := repo.DeleteSong(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	invalidateSongLyrics(r.Context(), id)

	log.Infof("%s Deleted song %d", logcolors.LogSongs, id)
	Respond(w, r).JSON(map[string]interface{}{"message": "Song deleted", "song_id": id})
}

func listTranslations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	translations, err := repo.ListTranslations(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(translations)
}

func addTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	var req TranslationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	translation := store.SongTranslation{
		SongID:       id,
		LanguageCode: req.LanguageCode,
		Title:        req.Title,
		Source:       req.Source,
		Translator:   req.Translator,
	}
	if err := repo.AddTranslation(r.Context(), &translation); err != nil {
		writeStoreError(w, r, err)
		return
	}

	log.Infof("%s Added %s title for song %d", logcolors.LogSongs, translation.LanguageCode, id)
	Respond(w, r).Status(http.StatusCreated, translation)
}

func getTranslation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	translation, err := repo.GetTranslation(r.Context(), id, mux.Vars(r)["lang"])
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(translation)
}

func getTitleLanguages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	codes, err := repo.TitleLanguages(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	Respond(w, r).JSON(codes)
}
