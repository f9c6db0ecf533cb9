package code_analyzer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/meysamhadeli/codewatch/code_analyzer/models"
)

// defaultCacheMaxAge is how long a cached graph is kept without being rewritten.
const defaultCacheMaxAge = 7 * 24 * time.Hour

// CacheEntry represents a cached graph with metadata
type CacheEntry struct {
	Timestamp time.Time
	Key       string
	Snapshot  models.GraphSnapshot
}

// FileCache stores gob encoded entries, one file per key
type FileCache struct {
	cacheDir string
	mutex    sync.RWMutex
}

// CacheStats tracks cache performance metrics
type CacheStats struct {
	TotalRequests int64
	CacheHits     int64
	CacheMisses   int64
	LastResetTime time.Time
	mutex         sync.RWMutex
}

// CacheManager provides graph caching keyed by root directory
type CacheManager struct {
	fileCache *FileCache
	stats     *CacheStats
}

// NewCacheManager creates a new cache manager instance.
// If cacheDir is empty, it defaults to ".cache/codewatch" in the current working directory
func NewCacheManager(cacheDir string) (*CacheManager, error) {
	if cacheDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current working directory: %w", err)
		}
		cacheDir = filepath.Join(cwd, ".cache", "codewatch")
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cacheManager := &CacheManager{
		fileCache: &FileCache{cacheDir: cacheDir},
		stats: &CacheStats{
			LastResetTime: time.Now(),
		},
	}

	if err := cacheManager.CleanExpiredCache(defaultCacheMaxAge); err != nil {
		return nil, err
	}

	return cacheManager, nil
}

// generateCacheKey creates a unique cache file name for a key
func (fc *FileCache) generateCacheKey(key string) string {
	return fmt.Sprintf("%x.cache", xxh3.HashString(key))
}

// getCachePath returns the full path to a cache file
func (fc *FileCache) getCachePath(key string) string {
	return filepath.Join(fc.cacheDir, fc.generateCacheKey(key))
}

// Get reads and decodes the entry stored for key
func (fc *FileCache) Get(key string) (*CacheEntry, bool) {
	fc.mutex.RLock()
	defer fc.mutex.RUnlock()

	data, err := os.ReadFile(fc.getCachePath(key))
	if err != nil {
		return nil, false
	}

	var entry CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, false
	}
	// Guard against xxh3 collisions between roots
	if entry.Key != key {
		return nil, false
	}

	return &entry, true
}

// Set encodes and stores entry for key
func (fc *FileCache) Set(key string, snapshot *models.GraphSnapshot) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	entry := CacheEntry{
		Timestamp: time.Now(),
		Key:       key,
		Snapshot:  *snapshot,
	}

	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.WriteFile(fc.getCachePath(key), buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	return nil
}

// Delete removes a cache entry
func (fc *FileCache) Delete(key string) error {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if err := os.Remove(fc.getCachePath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}

	return nil
}

// GetGraph retrieves the cached graph snapshot for root
func (cm *CacheManager) GetGraph(root string) (*models.GraphSnapshot, bool) {
	entry, found := cm.fileCache.Get(root)
	if !found {
		cm.recordCacheMiss()
		return nil, false
	}

	cm.recordCacheHit()
	return &entry.Snapshot, true
}

// SetGraph stores the graph snapshot for root
func (cm *CacheManager) SetGraph(root string, snapshot *models.GraphSnapshot) error {
	return cm.fileCache.Set(root, snapshot)
}

// InvalidateGraph removes the cached graph for root
func (cm *CacheManager) InvalidateGraph(root string) error {
	return cm.fileCache.Delete(root)
}

// GetCacheStats returns cache storage statistics
func (cm *CacheManager) GetCacheStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var totalSize int64
	var cacheFiles int
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		cacheFiles++
		totalSize += info.Size()
	}

	stats["cache_files"] = cacheFiles
	stats["total_size"] = totalSize
	stats["cache_dir"] = cm.fileCache.cacheDir

	return stats, nil
}

// ClearCache completely removes all cache entries
func (cm *CacheManager) ClearCache() error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(cm.fileCache.cacheDir, file.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete cache file: %w", err)
		}
	}

	return nil
}

// CleanExpiredCache removes cache entries older than specified duration
func (cm *CacheManager) CleanExpiredCache(maxAge time.Duration) error {
	cm.fileCache.mutex.Lock()
	defer cm.fileCache.mutex.Unlock()

	files, err := os.ReadDir(cm.fileCache.cacheDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		cachePath := filepath.Join(cm.fileCache.cacheDir, file.Name())
		data, err := os.ReadFile(cachePath)
		if err != nil {
			continue
		}

		var entry CacheEntry
		if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
			// Unreadable entries are garbage
			os.Remove(cachePath)
			continue
		}

		if entry.Timestamp.Before(cutoff) {
			os.Remove(cachePath)
		}
	}

	return nil
}
