package main

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"songbook-api-go/logcolors"
	"songbook-api-go/lyrics"

	log "github.com/sirupsen/logrus"
)

// readParseBody returns the lyrics text and requested format of a /parse or
// /detect request. JSON bodies carry both; any other body is the raw text
// and the format comes from the query string.
func readParseBody(w http.ResponseWriter, r *http.Request) (content, format string, status int, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, conf.Configuration.MaxUploadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", http.StatusRequestEntityTooLarge, err
		}
		return "", "", http.StatusBadRequest, err
	}

	format = r.URL.Query().Get("format")
	content = string(body)

	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req ParseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", "", http.StatusBadRequest, err
		}
		content = req.Content
		if format == "" {
			format = req.Format
		}
	}

	if strings.TrimSpace(content) == "" {
		return "", "", http.StatusBadRequest, errors.New("lyrics content is required")
	}
	return content, format, http.StatusOK, nil
}

func parseLyrics(w http.ResponseWriter, r *http.Request) {
	content, formatName, status, err := readParseBody(w, r)
	if err != nil {
		Respond(w, r).Fail(status, err.Error())
		return
	}

	format, err := lyrics.ParseFormat(formatName)
	if err != nil {
		Respond(w, r).Fail(http.StatusBadRequest, err.Error())
		return
	}

	body, source, err := parseCached(r.Context(), content, format, isCacheOnly(r))
	if errors.Is(err, errCacheOnlyMiss) {
		Respond(w, r).SetCacheStatus(string(source)).Fail(http.StatusTooManyRequests, err.Error())
		return
	}
	if err != nil {
		log.Errorf("%s Failed to parse: %v", logcolors.LogParse, err)
		Respond(w, r).Fail(http.StatusInternalServerError, "Failed to parse lyrics")
		return
	}

	Respond(w, r).SetCacheStatus(string(source)).Raw(body)
}

func detectFormat(w http.ResponseWriter, r *http.Request) {
	content, _, status, err := readParseBody(w, r)
	if err != nil {
		Respond(w, r).Fail(status, err.Error())
		return
	}

	Respond(w, r).JSON(map[string]string{"format": lyrics.Detect(content).String()})
}
