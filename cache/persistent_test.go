package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// setupTestCache creates a temporary cache for testing
func setupTestCache(t *testing.T, compression bool) (*PersistentCache, string) {
	t.Helper()

	tmpDir := t.TempDir()
	cache, err := NewPersistentCache(filepath.Join(tmpDir, "cache.db"), filepath.Join(tmpDir, "backups"), compression)
	if err != nil {
		t.Fatalf("Failed to create test cache: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	return cache, tmpDir
}

func TestNewPersistentCache(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	cache, err := NewPersistentCache(dbPath, backupPath, true)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	defer cache.Close()

	if !cache.compressionEnabled {
		t.Error("Expected compression to be enabled")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Expected cache file to exist: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Errorf("Expected backup directory to exist: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	for _, compression := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "compressed"}[compression], func(t *testing.T) {
			cache, _ := setupTestCache(t, compression)

			value := []byte(`{"lines":[{"text":"Hello","start_ms":1000,"end_ms":2500}]}`)
			if err := cache.Set("lyrics:1:en", value, 0); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			got, ok := cache.Get("lyrics:1:en")
			if !ok {
				t.Fatal("Expected key to be found")
			}
			if string(got) != string(value) {
				t.Errorf("Get = %s, want %s", got, value)
			}
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	if _, ok := cache.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	if err := cache.Set("short", []byte("x"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok := cache.Get("short"); ok {
		t.Error("Expected expired entry to be a miss")
	}
	if n, _ := cache.Stats(); n != 0 {
		t.Errorf("Expected expired entry to be dropped, %d keys remain", n)
	}
}

func TestDeleteAndDeletePrefix(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	for _, k := range []string{"lyrics:1:en", "lyrics:1:ko", "lyrics:12:en", "parse:abc"} {
		if err := cache.Set(k, []byte(k), 0); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	if err := cache.Delete("parse:abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := cache.Get("parse:abc"); ok {
		t.Error("Expected parse:abc to be deleted")
	}

	removed, err := cache.DeletePrefix("lyrics:1:")
	if err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("DeletePrefix removed %d keys, want 2", removed)
	}
	if _, ok := cache.Get("lyrics:1:en"); ok {
		t.Error("Expected lyrics:1:en to be deleted")
	}
	if _, ok := cache.Get("lyrics:12:en"); !ok {
		t.Error("lyrics:12:en must survive a lyrics:1: prefix delete")
	}
}

func TestClearAndStats(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	cache.Set("a", []byte(strings.Repeat("x", 2048)), 0)
	cache.Set("b", []byte("y"), 0)

	keys, sizeKB := cache.Stats()
	if keys != 2 {
		t.Errorf("Stats keys = %d, want 2", keys)
	}
	if sizeKB < 2 {
		t.Errorf("Stats size = %dKB, want >= 2", sizeKB)
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if keys, _ := cache.Stats(); keys != 0 {
		t.Errorf("Expected empty cache after Clear, got %d keys", keys)
	}
	if _, ok := cache.Get("a"); ok {
		t.Error("Expected miss after Clear")
	}
}

func TestRange(t *testing.T) {
	cache, _ := setupTestCache(t, true)
	cache.Set("k1", []byte("v1"), 0)
	cache.Set("k2", []byte("v2"), time.Hour)

	seen := map[string]CacheEntry{}
	cache.Range(func(key string, entry CacheEntry) bool {
		seen[key] = entry
		return true
	})

	if len(seen) != 2 {
		t.Fatalf("Range visited %d entries, want 2", len(seen))
	}
	if !seen["k1"].Compressed {
		t.Error("Expected entries to be stored compressed")
	}
	if !seen["k1"].ExpiresAt.IsZero() {
		t.Error("k1 should not expire")
	}
	if seen["k2"].ExpiresAt.IsZero() {
		t.Error("k2 should carry an expiry")
	}
}

func TestReloadFromDisk(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "cache.db")
	backupPath := filepath.Join(tmpDir, "backups")

	first, err := NewPersistentCache(dbPath, backupPath, false)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	first.Set("persist", []byte("me"), 0)
	first.Set("gone", []byte("soon"), time.Millisecond)
	first.Close()

	time.Sleep(5 * time.Millisecond)

	second, err := NewPersistentCache(dbPath, backupPath, false)
	if err != nil {
		t.Fatalf("Failed to reopen cache: %v", err)
	}
	defer second.Close()

	if got, ok := second.Get("persist"); !ok || string(got) != "me" {
		t.Errorf("Expected persisted value, got %q (found %v)", got, ok)
	}
	if keys, _ := second.Stats(); keys != 1 {
		t.Errorf("Expected only the live entry to be preloaded, got %d", keys)
	}
}

func TestBackupListRestoreDelete(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	cache.Set("before", []byte("1"), 0)
	backupPath, err := cache.Backup()
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("Backup file missing: %v", err)
	}

	cache.Set("after", []byte("2"), 0)

	backups, err := cache.ListBackups()
	if err != nil {
		t.Fatalf("ListBackups failed: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d", len(backups))
	}

	if err := cache.RestoreFromBackup(backups[0].FileName); err != nil {
		t.Fatalf("RestoreFromBackup failed: %v", err)
	}
	if _, ok := cache.Get("before"); !ok {
		t.Error("Expected restored key to be present")
	}
	if _, ok := cache.Get("after"); ok {
		t.Error("Expected key written after the backup to be gone")
	}

	if err := cache.DeleteBackup(backups[0].FileName); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	if backups, _ := cache.ListBackups(); len(backups) != 0 {
		t.Errorf("Expected no backups after delete, got %d", len(backups))
	}
}

func TestBackupAndClear(t *testing.T) {
	cache, _ := setupTestCache(t, false)
	cache.Set("k", []byte("v"), 0)

	path, err := cache.BackupAndClear()
	if err != nil {
		t.Fatalf("BackupAndClear failed: %v", err)
	}
	if path == "" {
		t.Error("Expected backup path")
	}
	if keys, _ := cache.Stats(); keys != 0 {
		t.Errorf("Expected cleared cache, got %d keys", keys)
	}
}

func TestRestoreRejectsBadNames(t *testing.T) {
	cache, _ := setupTestCache(t, false)

	tests := []string{"", "../cache.db", "backup.txt", "missing.db"}
	for _, name := range tests {
		if err := cache.RestoreFromBackup(name); err == nil {
			t.Errorf("RestoreFromBackup(%q) should fail", name)
		}
		if err := cache.DeleteBackup(name); err == nil {
			t.Errorf("DeleteBackup(%q) should fail", name)
		}
	}
}
