package cache

import (
	"os"
	"sync"
	"time"

	"nids-engine/models"
	"nids-engine/parser"
	"nids-engine/processor"
)

type rulesetEntry struct {
	rules   []*models.Rule
	failed  int
	modTime time.Time
	size    int64
}

// RulesetCache caches parsed rule files keyed by path. Entries are validated
// against the file's size and modification time, so an edited rule file is
// re-parsed on the next request.
type RulesetCache struct {
	entries map[string]rulesetEntry
	mutex   sync.RWMutex
}

// NewRulesetCache creates an empty cache.
func NewRulesetCache() *RulesetCache {
	return &RulesetCache{entries: make(map[string]rulesetEntry)}
}

// Load returns the parsed rules of path, parsing the file only when no
// current cache entry exists.
func (rc *RulesetCache) Load(path string) ([]*models.Rule, int, error) {
	if rules, failed, ok := rc.Get(path); ok {
		return rules, failed, nil
	}

	rules, failed, err := processor.LoadRuleFile(path)
	if err != nil {
		return nil, 0, err
	}
	rc.Put(path, rules, failed)
	return rules, failed, nil
}

// Get returns the cached parse of path when it is still current.
func (rc *RulesetCache) Get(path string) ([]*models.Rule, int, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, false
	}

	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	entry, ok := rc.entries[path]
	if !ok || !entry.modTime.Equal(info.ModTime()) || entry.size != info.Size() {
		return nil, 0, false
	}
	return entry.rules, entry.failed, true
}

// Put stores the parse result for path, stamped with the file's current
// size and modification time.
func (rc *RulesetCache) Put(path string, rules []*models.Rule, failed int) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	rc.entries[path] = rulesetEntry{
		rules:   rules,
		failed:  failed,
		modTime: info.ModTime(),
		size:    info.Size(),
	}
}

// Invalidate drops the entry for path.
func (rc *RulesetCache) Invalidate(path string) {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	delete(rc.entries, path)
}

// Clear drops every entry.
func (rc *RulesetCache) Clear() {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	rc.entries = make(map[string]rulesetEntry)
}

// Size returns the number of cached files.
func (rc *RulesetCache) Size() int {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()

	return len(rc.entries)
}

// ParseLine is a convenience wrapper so callers holding only the cache can
// still parse ad-hoc rule text.
func (rc *RulesetCache) ParseLine(line string) (*models.Rule, error) {
	return parser.ParseRule(line)
}
