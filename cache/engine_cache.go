package cache

import (
	"os"
	"sync"
	"time"

	"nids-engine/models"
	"nids-engine/processor"
)

type engineEntry struct {
	engine  *processor.Engine
	modTime time.Time
	size    int64
}

// EngineCache caches compiled engines keyed by rules-file path. Compiling a
// large rule set dominates interactive use, so repeated scans against the
// same unchanged file reuse the compiled engine; compiled engines are
// read-only and safe to share. Rule parsing goes through a RulesetCache.
// Entries are keyed by path alone: the cfg given to Get is used only when an
// engine is built, and a cached engine is returned whatever cfg is passed.
type EngineCache struct {
	entries  map[string]engineEntry
	rulesets *RulesetCache
	mutex    sync.RWMutex
}

// NewEngineCache creates an empty cache.
func NewEngineCache() *EngineCache {
	return &EngineCache{
		entries:  make(map[string]engineEntry),
		rulesets: NewRulesetCache(),
	}
}

// Rulesets exposes the underlying parsed-ruleset cache.
func (ec *EngineCache) Rulesets() *RulesetCache {
	return ec.rulesets
}

// Get returns a compiled engine for path, building and caching one when
// needed. The entry is invalidated when the file's size or mtime changed.
func (ec *EngineCache) Get(path string, cfg models.Config) (*processor.Engine, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	ec.mutex.RLock()
	entry, ok := ec.entries[path]
	ec.mutex.RUnlock()
	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.engine, nil
	}

	rules, failed, err := ec.rulesets.Load(path)
	if err != nil {
		return nil, err
	}

	engine := processor.NewEngine(cfg)
	engine.RulesPath = path
	engine.AddParsedRules(rules, failed)
	if err := engine.Compile(); err != nil {
		return nil, err
	}

	ec.mutex.Lock()
	ec.entries[path] = engineEntry{engine: engine, modTime: info.ModTime(), size: info.Size()}
	ec.mutex.Unlock()

	return engine, nil
}

// Invalidate drops the entry for path, including its parsed ruleset.
func (ec *EngineCache) Invalidate(path string) {
	ec.mutex.Lock()
	delete(ec.entries, path)
	ec.mutex.Unlock()

	ec.rulesets.Invalidate(path)
}

// Size returns the number of cached engines.
func (ec *EngineCache) Size() int {
	ec.mutex.RLock()
	defer ec.mutex.RUnlock()

	return len(ec.entries)
}
