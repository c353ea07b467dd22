package main

import (
	"github.com/gorilla/mux"
)

// Route names are "<stats group>:<name>". The limiter uses them to find
// routes that may be answered from cache.
func setupRoutes(router *mux.Router) {
	router.HandleFunc("/", getHelp).Methods("GET").Name("other:help")
	router.HandleFunc("/health", getHealthStatus).Methods("GET").Name("health:health")
	router.HandleFunc("/stats", getStats).Methods("GET").Name("stats:stats")
	router.HandleFunc("/languages", getLanguages).Methods("GET").Name("other:languages")

	// Parsing
	router.HandleFunc("/parse", parseLyrics).Methods("POST").Name("parse:parse")
	router.HandleFunc("/detect", detectFormat).Methods("POST").Name("parse:detect")

	// Songs
	router.HandleFunc("/songs", listSongs).Methods("GET").Name("songs:list")
	router.HandleFunc("/songs", createSong).Methods("POST").Name("songs:create")
	router.HandleFunc("/songs/search", searchSongs).Methods("GET").Name("songs:search")
	router.HandleFunc("/songs/{id:[0-9]+}", getSong).Methods("GET").Name("songs:get")
	router.HandleFunc("/songs/{id:[0-9]+}", updateSong).Methods("PUT").Name("songs:update")
	router.HandleFunc("/songs/{id:[0-9]+}", deleteSong).Methods("DELETE").Name("songs:delete")

	// Translations
	router.HandleFunc("/songs/{id:[0-9]+}/translations", listTranslations).Methods("GET").Name("songs:translations")
	router.HandleFunc("/songs/{id:[0-9]+}/translations", addTranslation).Methods("POST").Name("songs:add-translation")
	router.HandleFunc("/songs/{id:[0-9]+}/translations/{lang}", getTranslation).Methods("GET").Name("songs:translation")
	router.HandleFunc("/songs/{id:[0-9]+}/title-languages", getTitleLanguages).Methods("GET").Name("songs:title-languages")

	// Lyrics
	router.HandleFunc("/songs/{id:[0-9]+}/languages", getLyricsLanguages).Methods("GET").Name("lyrics:languages")
	router.HandleFunc("/songs/{id:[0-9]+}/lyrics", addLyrics).Methods("POST").Name("lyrics:add")
	router.HandleFunc("/songs/{id:[0-9]+}/lyrics/{lang}", getLyrics).Methods("GET").Name("lyrics:get")
	router.HandleFunc("/songs/{id:[0-9]+}/lyrics/{lang}/active", getActiveLine).Methods("GET").Name("lyrics:active")
	router.HandleFunc("/lyrics/{id:[0-9]+}", updateLyrics).Methods("PUT").Name("lyrics:update")
	router.HandleFunc("/lyrics/{id:[0-9]+}", deleteLyrics).Methods("DELETE").Name("lyrics:delete")

	// YouTube
	router.HandleFunc("/youtube/{videoID}", getYouTubeVideo).Methods("GET").Name("youtube:video")

	// Cache admin
	router.HandleFunc("/cache", getCacheDump).Methods("GET").Name("cache:dump")
	router.HandleFunc("/cache/backup", backupCache).Methods("POST").Name("cache:backup")
	router.HandleFunc("/cache/backups", listBackups).Methods("GET").Name("cache:backups")
	router.HandleFunc("/cache/backups", deleteBackup).Methods("DELETE").Name("cache:delete-backup")
	router.HandleFunc("/cache/restore", restoreCache).Methods("POST").Name("cache:restore")
	router.HandleFunc("/cache/clear", clearCache).Methods("POST").Name("cache:clear")

	// Circuit breaker
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus).Methods("GET").Name("health:circuit-breaker")
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods("POST").Name("health:circuit-breaker-reset")
	router.HandleFunc("/test-notifications", testNotifications).Methods("POST").Name("health:test-notifications")
}
