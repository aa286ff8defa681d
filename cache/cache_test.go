package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nids-engine/models"
	"nids-engine/parser"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.rules")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRulesetCache(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (msg:"x"; sid:1;)`+"\n")

	rc := NewRulesetCache()
	_, _, ok := rc.Get(path)
	assert.False(t, ok)

	rule, err := parser.ParseRule(`alert tcp any any -> any any (msg:"x"; sid:1;)`)
	require.NoError(t, err)
	rc.Put(path, []*models.Rule{rule}, 0)

	rules, failed, ok := rc.Get(path)
	require.True(t, ok)
	assert.Len(t, rules, 1)
	assert.Zero(t, failed)
	assert.Equal(t, 1, rc.Size())
}

func TestRulesetCacheInvalidatesOnChange(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (sid:1;)`+"\n")

	rc := NewRulesetCache()
	rc.Put(path, nil, 0)
	_, _, ok := rc.Get(path)
	require.True(t, ok)

	// rewriting the file changes size and mtime
	require.NoError(t, os.WriteFile(path, []byte(
		`alert tcp any any -> any any (sid:1;)`+"\n"+
			`alert udp any any -> any any (sid:2;)`+"\n"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	_, _, ok = rc.Get(path)
	assert.False(t, ok)
}

func TestRulesetCacheLoad(t *testing.T) {
	path := writeRules(t,
		`alert tcp any any -> any any (msg:"ok"; sid:1;)`+"\n"+
			`this line is rejected`+"\n")

	rc := NewRulesetCache()
	rules, failed, err := rc.Load(path)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, 1, failed)

	// second load is served from the cache
	again, failed2, err := rc.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, failed2)
	require.Len(t, again, 1)
	assert.Same(t, rules[0], again[0])

	_, _, err = rc.Load(filepath.Join(t.TempDir(), "missing.rules"))
	assert.Error(t, err)
}

func TestEngineCacheUsesRulesetCache(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (msg:"x"; sid:1;)`+"\n")

	ec := NewEngineCache()
	engine, err := ec.Get(path, models.DefaultConfig())
	require.NoError(t, err)

	// the engine build parsed through the composed ruleset cache
	rules, _, ok := ec.Rulesets().Get(path)
	require.True(t, ok)
	require.Len(t, rules, 1)
	assert.Same(t, engine.Rules[0], rules[0])

	ec.Invalidate(path)
	_, _, ok = ec.Rulesets().Get(path)
	assert.False(t, ok)
}

func TestRulesetCacheExplicitInvalidate(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (sid:1;)`+"\n")

	rc := NewRulesetCache()
	rc.Put(path, nil, 0)
	rc.Invalidate(path)
	_, _, ok := rc.Get(path)
	assert.False(t, ok)

	rc.Put(path, nil, 0)
	rc.Clear()
	assert.Zero(t, rc.Size())
}

func TestEngineCacheCompilesOnce(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (msg:"cached"; content:"boo"; sid:1;)`+"\n")

	ec := NewEngineCache()
	cfg := models.DefaultConfig()

	first, err := ec.Get(path, cfg)
	require.NoError(t, err)
	second, err := ec.Get(path, cfg)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, ec.Size())
}

func TestEngineCacheRebuildsOnChange(t *testing.T) {
	path := writeRules(t, `alert tcp any any -> any any (sid:1;)`+"\n")

	ec := NewEngineCache()
	cfg := models.DefaultConfig()

	first, err := ec.Get(path, cfg)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(
		`alert tcp any any -> any any (sid:1;)`+"\n"+
			`alert tcp any any -> any any (sid:2;)`+"\n"), 0o644))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	second, err := ec.Get(path, cfg)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Len(t, second.Rules, 2)
}

func TestEngineCacheMissingFile(t *testing.T) {
	ec := NewEngineCache()
	_, err := ec.Get(filepath.Join(t.TempDir(), "missing.rules"), models.DefaultConfig())
	assert.Error(t, err)
}
