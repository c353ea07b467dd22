package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"songbook-api-go/circuitbreaker"
	"songbook-api-go/languages"
	"songbook-api-go/logcolors"
	"songbook-api-go/lyrics"
	"songbook-api-go/services/youtube"
	"songbook-api-go/store"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// payload returns the request's lyrics, parsing Content when no ready
// Payload was sent. ok is false when the request carries neither.
func (req LyricsRequest) payload() (p *lyrics.Payload, ok bool, err error) {
	if req.Payload != nil {
		return req.Payload, true, nil
	}
	if req.Content == nil {
		return nil, false, nil
	}

	format, err := lyrics.ParseFormat(req.Format)
	if err != nil {
		return nil, false, err
	}
	parsed := lyrics.Parse(*req.Content, format)
	return &parsed, true, nil
}

// parsePosition reads a playback position in milliseconds. Bare numbers are
// milliseconds; Go durations such as "12.5s" are also accepted.
func parsePosition(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing 't' query parameter")
	}
	if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
		return ms, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid position %q", raw)
	}
	return int(d.Milliseconds()), nil
}

func getLyricsLanguages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	codes, err := repo.LyricsLanguages(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	out := make([]LanguageView, 0, len(codes))
	for _, code := range codes {
		out = append(out, LanguageView{Code: code, Name: languages.Name(code), RTL: languages.IsRTL(code)})
	}
	Respond(w, r).JSON(out)
}

// lookupLyrics writes the error response itself and returns nil on failure.
func lookupLyrics(w http.ResponseWriter, r *http.Request) ([]byte, string) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return nil, ""
	}
	lang := mux.Vars(r)["lang"]

	body, source, err := getCachedLyrics(r.Context(), id, lang, isCacheOnly(r))
	switch {
	case errors.Is(err, errCacheOnlyMiss):
		Respond(w, r).SetCacheStatus(string(source)).Fail(http.StatusTooManyRequests, err.Error())
		return nil, ""
	case err != nil:
		writeStoreError(w, r, err)
		return nil, ""
	}
	return body, string(source)
}

func getLyrics(w http.ResponseWriter, r *http.Request) {
	body, source := lookupLyrics(w, r)
	if body == nil {
		return
	}
	Respond(w, r).SetCacheStatus(source).Raw(body)
}

func getActiveLine(w http.ResponseWriter, r *http.Request) {
	pos, err := parsePosition(r.URL.Query().Get("t"))
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	body, source := lookupLyrics(w, r)
	if body == nil {
		return
	}

	var view LyricsView
	if err := json.Unmarshal(body, &view); err != nil {
		log.Errorf("%s Corrupt cached lyrics for %s: %v", logcolors.LogLyrics, r.URL.Path, err)
		Respond(w, r).Fail(http.StatusInternalServerError, "Failed to read lyrics")
		return
	}

	resp := ActiveLineResponse{PositionMs: pos, Index: -1}
	if view.Payload != nil {
		lines := view.Payload.Lines
		resp.Index = lyrics.ActiveLine(*view.Payload, pos)
		if resp.Index >= 0 {
			resp.Line = &lines[resp.Index]
		}
		if next := nextLine(*view.Payload, pos); next >= 0 {
			resp.Next = &lines[next]
		}
	}

	Respond(w, r).SetCacheStatus(source).JSON(resp)
}

// nextLine returns the index of the earliest line starting after
// positionMs, or -1.
func nextLine(p lyrics.Payload, positionMs int) int {
	next, nextStart := -1, 0
	for i, line := range p.Lines {
		start, ok := line.Start()
		if !ok || start <= positionMs {
			continue
		}
		if next < 0 || start < nextStart {
			next, nextStart = i, start
		}
	}
	return next
}

func addLyrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	var req LyricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}
	payload, ok, err := req.payload()
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		Respond(w, r).Fail(http.StatusBadRequest, "Either 'content' or 'payload' is required")
		return
	}
	if req.LanguageCode == nil {
		Respond(w, r).Fail(http.StatusBadRequest, "'language_code' is required")
		return
	}

	record := store.LyricsRecord{
		SongID:       id,
		LanguageCode: *req.LanguageCode,
		Payload:      payload,
		Source:       req.Source,
		Translator:   req.Translator,
	}
	if err := repo.AddLyrics(r.Context(), &record); err != nil {
		writeStoreError(w, r, err)
		return
	}
	invalidateSongLyrics(r.Context(), id)

	log.Infof("%s Added %s lyrics %d to song %d (%d lines)", logcolors.LogLyrics, record.LanguageCode, record.LyricsID, id, len(payload.Lines))
	Respond(w, r).Status(http.StatusCreated, record)
}

func updateLyrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	var req LyricsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}
	payload, _, err := req.payload()
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	record, err := repo.UpdateLyrics(r.Context(), id, store.LyricsUpdate{
		LanguageCode: req.LanguageCode,
		Payload:      payload,
		Source:       req.Source,
		Translator:   req.Translator,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	// the language may have changed, so drop every language of the song
	invalidateSongLyrics(r.Context(), record.SongID)

	log.Infof("%s Updated lyrics %d", logcolors.LogLyrics, id)
	Respond(w, r).JSON(record)
}

func deleteLyrics(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	record, err := repo.DeleteLyrics(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	invalidateSongLyrics(r.Context(), record.SongID)

	log.Infof("%s Deleted lyrics %d of song %d", logcolors.LogLyrics, id, record.SongID)
	Respond(w, r).JSON(map[string]interface{}{"message": "Lyrics deleted", "lyrics_id": id})
}

var thumbnailQualities = []youtube.Quality{
	youtube.QualityDefault,
	youtube.QualityMedium,
	youtube.QualityHigh,
	youtube.QualitySD,
	youtube.QualityMaxRes,
}

// getYouTubeVideo returns oEmbed metadata for a video. Links that need no
// network call are always present; when the breaker is open they are served
// alone with a 503.
func getYouTubeVideo(w http.ResponseWriter, r *http.Request) {
	videoID := mux.Vars(r)["videoID"]
	quality := youtube.ParseQuality(r.URL.Query().Get("quality"))

	resp := YouTubeResponse{
		VideoID:      videoID,
		ThumbnailURL: youtube.ThumbnailURL(videoID, quality),
		Thumbnails:   make(map[string]string, len(thumbnailQualities)),
		VideoURL:     youtube.VideoURL(videoID),
		EmbedURL:     youtube.EmbedURL(videoID),
	}
	for _, q := range thumbnailQualities {
		resp.Thumbnails[string(q)] = youtube.ThumbnailURL(videoID, q)
	}

	meta, err := ytClient.OEmbed(r.Context(), videoID)
	switch {
	case errors.Is(err, youtube.ErrVideoNotFound):
		Respond(w, r).Fail(http.StatusNotFound, "Video not found")
		return
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		w.Header().Set("Retry-After", strconv.Itoa(int(ytClient.Breaker().TimeUntilRetry().Seconds())+1))
		Respond(w, r).Status(http.StatusServiceUnavailable, resp)
		return
	case err != nil:
		log.Warnf("%s oEmbed for %s failed: %v", logcolors.LogYouTube, videoID, err)
		Respond(w, r).Status(http.StatusBadGateway, resp)
		return
	}

	resp.Title = meta.Title
	resp.AuthorName = meta.AuthorName
	resp.AuthorURL = meta.AuthorURL
	Respond(w, r).JSON(resp)
}
