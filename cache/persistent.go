package cache

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"songbook-api-go/logcolors"
	"songbook-api-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "payloads"

// PersistentCache wraps BoltDB with an in-memory mirror for fast access.
type PersistentCache struct {
	mu                 sync.RWMutex // guards db while backups swap the file
	db                 *bolt.DB
	memCache           sync.Map
	dbPath             string
	backupPath         string
	compressionEnabled bool
}

// CacheEntry is a stored value. Value is raw JSON text, or base64 gzip when
// Compressed is set. A zero ExpiresAt never expires.
type CacheEntry struct {
	Value      string    `json:"value"`
	Compressed bool      `json:"compressed,omitempty"`
	StoredAt   time.Time `json:"storedAt"`
	ExpiresAt  time.Time `json:"expiresAt,omitempty"`
}

func (e CacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func (e CacheEntry) decode() ([]byte, error) {
	if e.Compressed {
		return utils.Decompress(e.Value)
	}
	return []byte(e.Value), nil
}

// NewPersistentCache opens (or creates) the bolt file at dbPath and preloads
// every live entry into memory.
func NewPersistentCache(dbPath string, backupPath string, compressionEnabled bool) (*PersistentCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing cache file at %s (%d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new cache file at %s", logcolors.LogCacheInit, dbPath)
	}

	pc := &PersistentCache{
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
	}
	if err := pc.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Persistent cache ready at %s (compression: %v, backups: %s)",
		logcolors.LogCache, dbPath, compressionEnabled, backupPath)
	return pc, nil
}

// open sets pc.db. Callers hold pc.mu for writing unless pc is not yet shared.
func (pc *PersistentCache) open() error {
	db, err := bolt.Open(pc.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create cache bucket: %w", err)
	}

	pc.db = db
	if err := pc.loadToMemory(); err != nil {
		log.Warnf("%s Failed to preload cache to memory: %v", logcolors.LogCache, err)
	}
	return nil
}

func (pc *PersistentCache) loadToMemory() error {
	pc.memCache.Range(func(k, _ interface{}) bool {
		pc.memCache.Delete(k)
		return true
	})

	now := time.Now()
	loaded, skipped := 0, 0
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCache, string(k), err)
				skipped++
				return nil
			}
			if entry.expired(now) {
				skipped++
				return nil
			}
			pc.memCache.Store(string(k), entry)
			loaded++
			return nil
		})
	})
	if err != nil {
		return err
	}

	log.Infof("%s Loaded %d entries into memory (%d skipped)", logcolors.LogCache, loaded, skipped)
	return nil
}

// Get returns the value stored under key. Expired entries are removed and
// reported as misses.
func (pc *PersistentCache) Get(key string) ([]byte, bool) {
	entry, ok := pc.lookup(key)
	if !ok {
		return nil, false
	}
	if entry.expired(time.Now()) {
		if err := pc.Delete(key); err != nil {
			log.Warnf("%s Failed to drop expired key %s: %v", logcolors.LogCache, key, err)
		}
		return nil, false
	}

	value, err := entry.decode()
	if err != nil {
		log.Errorf("%s Error decoding value for key %s: %v", logcolors.LogCache, key, err)
		return nil, false
	}
	return value, true
}

func (pc *PersistentCache) lookup(key string) (CacheEntry, bool) {
	if v, ok := pc.memCache.Load(key); ok {
		return v.(CacheEntry), true
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	var entry CacheEntry
	found := false
	err := pc.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		data := b.Get([]byte(key))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &entry); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return CacheEntry{}, false
	}

	pc.memCache.Store(key, entry)
	return entry, true
}

// Set stores value under key in memory and on disk. A ttl of zero or less
// keeps the entry until it is deleted.
func (pc *PersistentCache) Set(key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	entry := CacheEntry{Value: string(value), StoredAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}

	if pc.compressionEnabled {
		compressed, err := utils.Compress(value)
		if err != nil {
			log.Errorf("%s Error compressing value for key %s: %v", logcolors.LogCache, key, err)
			return err
		}
		entry.Value = compressed
		entry.Compressed = true
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	pc.memCache.Store(key, entry)

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put([]byte(key), data)
	})
}

// Delete removes key from both tiers.
func (pc *PersistentCache) Delete(key string) error {
	pc.memCache.Delete(key)

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Delete([]byte(key))
	})
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (pc *PersistentCache) DeletePrefix(prefix string) (int, error) {
	pc.memCache.Range(func(k, _ interface{}) bool {
		if strings.HasPrefix(k.(string), prefix) {
			pc.memCache.Delete(k)
		}
		return true
	})

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	removed := 0
	err := pc.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		var keys [][]byte
		c := b.Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(keys)
		return nil
	})
	return removed, err
}

// Clear removes all entries.
func (pc *PersistentCache) Clear() error {
	pc.memCache.Range(func(k, _ interface{}) bool {
		pc.memCache.Delete(k)
		return true
	})

	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Range iterates over the in-memory entries.
func (pc *PersistentCache) Range(fn func(key string, entry CacheEntry) bool) {
	pc.memCache.Range(func(k, v interface{}) bool {
		return fn(k.(string), v.(CacheEntry))
	})
}

// Stats returns the number of keys and their approximate stored size in KB.
func (pc *PersistentCache) Stats() (numKeys int, sizeInKB int) {
	pc.memCache.Range(func(k, v interface{}) bool {
		numKeys++
		sizeInKB += len(k.(string)) + len(v.(CacheEntry).Value)
		return true
	})
	sizeInKB = sizeInKB / 1024
	return
}

// Backup copies the cache file into the backup directory and returns the
// backup's path.
func (pc *PersistentCache) Backup() (string, error) {
	name := fmt.Sprintf("cache_backup_%s.db", time.Now().Format("2006-01-02_15-04-05.000"))
	dst := filepath.Join(pc.backupPath, name)

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	// bolt can stream a consistent snapshot from a read transaction
	err := pc.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(dst, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created: %s", logcolors.LogCacheBackup, dst)
	return dst, nil
}

// BackupAndClear creates a backup and then empties the cache.
func (pc *PersistentCache) BackupAndClear() (string, error) {
	backupPath, err := pc.Backup()
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if err := pc.Clear(); err != nil {
		return backupPath, fmt.Errorf("backup created but failed to clear cache: %w", err)
	}

	log.Infof("%s Cache cleared (backup: %s)", logcolors.LogCacheClear, backupPath)
	return backupPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Close closes the bolt file.
func (pc *PersistentCache) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.db != nil {
		return pc.db.Close()
	}
	return nil
}

// BackupInfo describes a backup file.
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns the .db files in the backup directory.
func (pc *PersistentCache) ListBackups() ([]BackupInfo, error) {
	backups := []BackupInfo{}

	entries, err := os.ReadDir(pc.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to stat %s: %v", logcolors.LogCacheBackups, entry.Name(), err)
			continue
		}
		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(pc.backupPath, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return backups, nil
}

func (pc *PersistentCache) backupFile(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid backup file name: %q", name)
	}
	if filepath.Ext(name) != ".db" {
		return "", fmt.Errorf("invalid backup file: must be a .db file")
	}
	path := filepath.Join(pc.backupPath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file not found: %s", name)
	}
	return path, nil
}

// RestoreFromBackup replaces the cache file with the named backup and reloads
// memory from it. The current file is kept aside until the swap succeeds.
func (pc *PersistentCache) RestoreFromBackup(backupFileName string) error {
	src, err := pc.backupFile(backupFileName)
	if err != nil {
		return err
	}

	log.Infof("%s Restoring from %s", logcolors.LogCacheRestore, backupFileName)

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if err := pc.db.Close(); err != nil {
		return fmt.Errorf("failed to close current database: %w", err)
	}

	aside := pc.dbPath + ".pre-restore"
	if err := copyFile(pc.dbPath, aside); err != nil {
		if reopenErr := pc.open(); reopenErr != nil {
			log.Errorf("%s Reopen failed: %v", logcolors.LogCacheRestore, reopenErr)
		}
		return fmt.Errorf("failed to set current database aside: %w", err)
	}

	if err := copyFile(src, pc.dbPath); err != nil {
		if rollbackErr := copyFile(aside, pc.dbPath); rollbackErr != nil {
			log.Errorf("%s Rollback failed: %v", logcolors.LogCacheRestore, rollbackErr)
		}
		if reopenErr := pc.open(); reopenErr != nil {
			log.Errorf("%s Reopen failed: %v", logcolors.LogCacheRestore, reopenErr)
		}
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(aside)

	if err := pc.open(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %w", err)
	}

	log.Infof("%s Restored from %s", logcolors.LogCacheRestore, backupFileName)
	return nil
}

// DeleteBackup removes a backup file.
func (pc *PersistentCache) DeleteBackup(backupFileName string) error {
	path, err := pc.backupFile(backupFileName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}

	log.Infof("%s Deleted backup: %s", logcolors.LogCacheBackup, backupFileName)
	return nil
}
