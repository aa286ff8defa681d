package processor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nids-engine/models"
)

func v4(a, b, c, d byte) models.Words {
	return models.Words{uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d)}
}

type span struct {
	lo, hi models.Words
}

func v4Spans(set *AddressSet) []span {
	var spans []span
	for _, n := range set.V4 {
		spans = append(spans, span{n.Range.Lo, n.Range.Hi})
	}
	return spans
}

// requireInvariant checks the compiled-list contract: ascending and pairwise
// disjoint within each family.
func requireInvariant(t *testing.T, set *AddressSet) {
	t.Helper()
	for _, list := range [][]*AddressNode{set.V4, set.V6} {
		for i := 1; i < len(list); i++ {
			prev, cur := list[i-1], list[i]
			require.Equal(t, models.RelLT, prev.Range.Compare(cur.Range),
				"%s must sort strictly before %s", prev.Range, cur.Range)
		}
	}
}

func TestParseNetmask(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("1.2.3.4/255.255.255.0", 1))

	require.Len(t, set.V4, 1)
	assert.Equal(t, v4(1, 2, 3, 0), set.V4[0].Range.Lo)
	assert.Equal(t, v4(1, 2, 3, 255), set.V4[0].Range.Hi)
	assert.Equal(t, []uint32{1}, set.V4[0].Sigs.IDs())
}

func TestParseNegatedHost(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("!1.2.3.4", 1))

	require.Equal(t, []span{
		{v4(0, 0, 0, 0), v4(1, 2, 3, 3)},
		{v4(1, 2, 3, 5), v4(255, 255, 255, 255)},
	}, v4Spans(set))
	requireInvariant(t, set)
}

func TestParseOverlapsCutToDisjoint(t *testing.T) {
	want := []span{
		{v4(0, 0, 0, 0), v4(10, 10, 9, 255)},
		{v4(10, 10, 10, 0), v4(10, 10, 10, 9)},
		{v4(10, 10, 10, 10), v4(10, 10, 10, 255)},
		{v4(10, 10, 11, 0), v4(10, 10, 11, 1)},
		{v4(10, 10, 11, 2), v4(255, 255, 255, 255)},
	}

	elems := []string{"10.10.10.10-10.10.11.1", "10.10.10.0/24", "0.0.0.0/0"}
	perms := [][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, p := range perms {
		expr := fmt.Sprintf("[%s, %s, %s]", elems[p[0]], elems[p[1]], elems[p[2]])
		t.Run(expr, func(t *testing.T) {
			set := NewAddressSet()
			require.NoError(t, set.Parse(expr, 1))
			assert.Equal(t, want, v4Spans(set))
			requireInvariant(t, set)
		})
	}
}

func TestParseDoubleNegation(t *testing.T) {
	plain := NewAddressSet()
	require.NoError(t, plain.Parse("1.2.3.4", 1))

	double := NewAddressSet()
	require.NoError(t, double.Parse("![!1.2.3.4]", 1))

	assert.Equal(t, v4Spans(plain), v4Spans(double))
}

func TestParseAnyEqualsBothUniverses(t *testing.T) {
	anySet := NewAddressSet()
	require.NoError(t, anySet.Parse("any", 1))

	both := NewAddressSet()
	require.NoError(t, both.Parse("0.0.0.0/0", 1))
	require.NoError(t, both.Parse("::/0", 1))

	assert.Equal(t, v4Spans(anySet), v4Spans(both))
	require.Len(t, anySet.V6, 1)
	assert.True(t, anySet.V6[0].Range.IsLoMin())
	assert.True(t, anySet.V6[0].Range.IsHiMax())
	assert.Len(t, anySet.Any, 1)
}

func TestParseNegatedAnyFails(t *testing.T) {
	set := NewAddressSet()
	assert.Error(t, set.Parse("!any", 1))
}

func TestParsePositiveMinusContainingNegation(t *testing.T) {
	// a host inside a negated covering net vanishes entirely
	set := NewAddressSet()
	require.NoError(t, set.Parse("[1.2.3.4, !1.2.3.0/24]", 1))
	assert.Empty(t, set.V4)
}

func TestSigSetPropagationAcrossCuts(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("10.0.0.0-10.0.0.255", 1))
	require.NoError(t, set.Parse("10.0.0.128-10.0.1.0", 2))

	require.Equal(t, []span{
		{v4(10, 0, 0, 0), v4(10, 0, 0, 127)},
		{v4(10, 0, 0, 128), v4(10, 0, 0, 255)},
		{v4(10, 0, 1, 0), v4(10, 0, 1, 0)},
	}, v4Spans(set))

	assert.Equal(t, []uint32{1}, set.V4[0].Sigs.IDs())
	assert.Equal(t, []uint32{1, 2}, set.V4[1].Sigs.IDs())
	assert.Equal(t, []uint32{2}, set.V4[2].Sigs.IDs())
	requireInvariant(t, set)
}

func TestInsertEqualMergesSigs(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("10.1.0.0/16", 1))
	require.NoError(t, set.Parse("10.1.0.0/16", 2))

	require.Len(t, set.V4, 1)
	assert.Equal(t, []uint32{1, 2}, set.V4[0].Sigs.IDs())
}

func TestInsertManyOverlapsKeepsInvariant(t *testing.T) {
	exprs := []string{
		"10.0.0.0/8",
		"10.64.0.0/10",
		"10.64.7.1-10.128.0.0",
		"9.255.255.0-10.0.0.16",
		"10.64.7.9",
		"172.16.0.0/12",
		"10.63.255.255-10.64.0.0",
	}
	set := NewAddressSet()
	for i, e := range exprs {
		require.NoError(t, set.Parse(e, uint32(i)))
	}
	requireInvariant(t, set)

	// every inserted address must still be covered
	for _, probe := range []models.Words{
		v4(10, 0, 0, 0), v4(10, 64, 7, 9), v4(172, 16, 0, 1), v4(9, 255, 255, 42),
	} {
		assert.NotNil(t, set.Lookup(models.FamilyIPv4, probe), "%v", probe)
	}
}

func TestParseMixedFamilies(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("[1.2.3.4, 2001::1]", 1))
	assert.Len(t, set.V4, 1)
	assert.Len(t, set.V6, 1)
}

func TestParseNegatedV6(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("!2001::1", 1))

	require.Len(t, set.V6, 2)
	assert.True(t, set.V6[0].Range.IsLoMin())
	assert.Equal(t, models.Words{0x20010000, 0, 0, 0}, set.V6[0].Range.Hi)
	assert.Equal(t, models.Words{0x20010000, 0, 0, 2}, set.V6[1].Range.Lo)
	assert.True(t, set.V6[1].Range.IsHiMax())
	// v4 stays untouched by a pure v6 negation
	assert.Empty(t, set.V4)
}

func TestLookup(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("[10.0.0.0/8, 2001::/64]", 7))

	node := set.Lookup(models.FamilyIPv4, v4(10, 1, 2, 3))
	require.NotNil(t, node)
	assert.True(t, node.Sigs.Contains(7))

	assert.Nil(t, set.Lookup(models.FamilyIPv4, v4(11, 0, 0, 1)))

	node = set.Lookup(models.FamilyIPv6, models.Words{0x20010000, 0, 0, 42})
	require.NotNil(t, node)

	assert.Nil(t, set.Lookup(models.FamilyIPv6, models.Words{0x30010000, 0, 0, 1}))
}

func TestLookupFindsUniqueNode(t *testing.T) {
	set := NewAddressSet()
	require.NoError(t, set.Parse("10.0.0.0/24", 1))
	require.NoError(t, set.Parse("10.0.0.64/26", 2))

	node := set.Lookup(models.FamilyIPv4, v4(10, 0, 0, 65))
	require.NotNil(t, node)
	assert.Equal(t, []uint32{1, 2}, node.Sigs.IDs())

	node = set.Lookup(models.FamilyIPv4, v4(10, 0, 0, 1))
	require.NotNil(t, node)
	assert.Equal(t, []uint32{1}, node.Sigs.IDs())
}
