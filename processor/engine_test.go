package processor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nids-engine/models"
)

func pkt(src, dst models.Words, payload string) *models.Packet {
	return &models.Packet{
		SrcFamily: models.FamilyIPv4, Src: src,
		DstFamily: models.FamilyIPv4, Dst: dst,
		Payload: []byte(payload),
	}
}

func compiledEngine(t *testing.T, lines ...string) *Engine {
	t.Helper()
	e := NewEngine(models.DefaultConfig())
	e.LoadRuleLines(lines)
	require.NoError(t, e.Compile())
	return e
}

func sids(alerts []models.Alert) []uint32 {
	var out []uint32
	for _, a := range alerts {
		out = append(out, a.SID)
	}
	return out
}

func TestEngineEndToEnd(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp 1.2.3.0/24 any -> 5.6.7.8 any (msg:"one"; content:"attack"; sid:100;)`,
		`alert tcp !1.2.3.0/24 any -> any any (msg:"two"; content:"attack"; sid:200;)`,
		`alert tcp any any -> any any (msg:"addr only"; sid:300;)`,
	)

	// inside 1.2.3.0/24: rule 100 and the address-only rule fire
	alerts, err := e.Match(pkt(v4(1, 2, 3, 4), v4(5, 6, 7, 8), "an attack payload"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{100, 300}, sids(alerts))

	// outside the net the negated rule fires instead
	alerts, err = e.Match(pkt(v4(9, 9, 9, 9), v4(5, 6, 7, 8), "an attack payload"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{200, 300}, sids(alerts))

	// without the content only the address-only rule fires
	alerts, err = e.Match(pkt(v4(1, 2, 3, 4), v4(5, 6, 7, 8), "harmless"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{300}, sids(alerts))
}

func TestEngineDestinationNarrowing(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp 10.0.0.0/8 any -> 192.168.1.1 any (msg:"to one"; content:"xyz"; sid:1;)`,
		`alert tcp 10.0.0.0/8 any -> 192.168.1.2 any (msg:"to two"; content:"xyz"; sid:2;)`,
	)

	alerts, err := e.Match(pkt(v4(10, 1, 1, 1), v4(192, 168, 1, 2), "..xyz.."))
	require.NoError(t, err)
	assert.Equal(t, []uint32{2}, sids(alerts))

	alerts, err = e.Match(pkt(v4(10, 1, 1, 1), v4(192, 168, 1, 3), "..xyz.."))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEngineNoAlertRuleIsSilent(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp any any -> any any (msg:"silent"; content:"probe"; noalert; sid:10;)`,
		`alert tcp any any -> any any (msg:"loud"; content:"probe"; sid:20;)`,
	)

	alerts, err := e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "probe body"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{20}, sids(alerts))
}

func TestEngineMultiContentChain(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp any any -> any any (msg:"chain"; content:"foo"; content:"bar"; distance:1; sid:400;)`,
	)

	alerts, err := e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "foo bar"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{400}, sids(alerts))

	// "bar" immediately adjacent violates distance:1
	alerts, err = e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "foobar"))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// both contents required
	alerts, err = e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "foo only"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEngineSharedContentAcrossRules(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp any any -> any any (msg:"a"; content:"dup"; sid:1;)`,
		`alert tcp any any -> any any (msg:"b"; content:"dup"; sid:2;)`,
	)

	alerts, err := e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "a dup here"))
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, sids(alerts))
}

func TestEngineV6Packet(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp 2001::/64 any -> any any (msg:"v6"; content:"ping6"; sid:600;)`,
		`alert tcp 1.2.3.0/24 any -> any any (msg:"v4"; content:"ping6"; sid:700;)`,
	)

	p := &models.Packet{
		SrcFamily: models.FamilyIPv6, Src: models.Words{0x20010000, 0, 0, 7},
		DstFamily: models.FamilyIPv6, Dst: models.Words{0x20010000, 0, 0, 8},
		Payload: []byte("ping6 payload"),
	}
	alerts, err := e.Match(p)
	require.NoError(t, err)
	assert.Equal(t, []uint32{600}, sids(alerts))
}

func TestEngineRejectsBadRules(t *testing.T) {
	e := NewEngine(models.DefaultConfig())
	e.LoadRuleLines([]string{
		`alert tcp any any -> any any (msg:"good"; sid:1;)`,
		`alert tcp 1.2.3.6-1.2.3.4 any -> any any (msg:"reversed"; sid:2;)`,
		`this is not a rule at all`,
		``,
		`# a comment`,
	})

	assert.Len(t, e.Rules, 1)
	assert.Equal(t, 2, e.Failed)
	require.NoError(t, e.Compile())
}

func TestEngineLoadRulesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.rules")
	require.NoError(t, os.WriteFile(path, []byte(
		"# demo rules\n"+
			"alert tcp any any -> any any (msg:\"file rule\"; content:\"evil\"; sid:1;)\n"), 0o644))

	e := NewEngine(models.DefaultConfig())
	require.NoError(t, e.LoadRules(path))
	require.NoError(t, e.Compile())

	assert.Equal(t, path, e.RulesPath)
	rep := e.Report()
	assert.Equal(t, 1, rep.RulesLoaded)
	assert.Equal(t, 1, rep.PatternCount)

	alerts, err := e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "pure evil"))
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, "file rule", alerts[0].Msg)
	assert.Equal(t, 5, alerts[0].Position)
}

func TestEngineThreadStateReuse(t *testing.T) {
	e := compiledEngine(t,
		`alert tcp any any -> any any (msg:"x"; content:"abc"; sid:1;)`,
	)

	ts := e.NewThreadState()
	for i := 0; i < 5; i++ {
		alerts, err := e.MatchWithState(ts, pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "..abc.."))
		require.NoError(t, err)
		require.Len(t, alerts, 1)
	}
}

func TestEngineMatchBeforeCompile(t *testing.T) {
	e := NewEngine(models.DefaultConfig())
	_, err := e.Match(pkt(v4(1, 1, 1, 1), v4(2, 2, 2, 2), "x"))
	assert.Error(t, err)
}
