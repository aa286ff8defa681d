// Package matcher implements a 3-gram BNDMq multi-pattern matcher: patterns
// compile into a bitmask shift table over 3-gram hashes with per-bucket bloom
// prefilters, dedicated fast paths handle 1- and 2-byte patterns, and scan
// and search keep separate pattern sets.
package matcher

import (
	"bytes"
	"errors"

	"nids-engine/models"
	"nids-engine/utils"
)

const (
	// gramSize is the q of the BNDM-q variant.
	gramSize = 3

	// wordBits is the width of a shift-mask word. The shift fill sets bit
	// m-j, which reaches bit m itself at window position 0, so the window
	// length m caps at wordBits-1.
	wordBits  = 32
	maxWindow = wordBits - 1

	// maxPatterns is the unique-pattern cap imposed by the 16-bit pattern
	// indices in the hash buckets.
	maxPatterns = 65535

	// bloomIterations is the number of hash passes per bloom filter.
	bloomIterations = 2

	// bloomPrefixCap bounds the pattern prefix fed to the bloom filters.
	bloomPrefixCap = 8
)

type word uint32

var (
	// ErrCompiled is returned when patterns are added to (or Compile is
	// called on) an already compiled matcher.
	ErrCompiled = errors.New("matcher is already compiled")
	// ErrNotCompiled is returned when Scan or Search run before Compile.
	ErrNotCompiled = errors.New("matcher is not compiled")
	// ErrEmptyPattern is returned for zero-length patterns.
	ErrEmptyPattern = errors.New("empty pattern")
	// ErrTooManyPatterns is returned when the unique-pattern cap is hit.
	ErrTooManyPatterns = errors.New("too many patterns")
)

// EndMatch ties one occurrence of a pattern to a rule: the externally chosen
// pattern id, the owning signature and the position constraints.
type EndMatch struct {
	PatID  uint32
	SigID  uint32
	Offset uint16
	Depth  uint16
}

// pattern is one deduplicated pattern. ci holds the lowercased bytes, cs the
// original; for case-insensitive or already-lowercase patterns both point at
// the same backing array.
type pattern struct {
	ci     []byte
	cs     []byte
	nocase bool
	scan   bool
	ends   []EndMatch
}

func (p *pattern) len() int {
	return len(p.ci)
}

type patternKey struct {
	nocase bool
	bytes  string
}

// setCtx is the compiled dispatch state of one pattern set (scan or search).
type setCtx struct {
	m int

	// hash1/hash2 bucket the 1- and 2-byte patterns by their lowercased
	// bytes; hash buckets the rest by the 3-gram hash over positions
	// m-3..m-1. Buckets hold indices into Matcher.patterns.
	hash1 [][]uint16
	hash2 [][]uint16
	hash  [][]uint16

	// shift is the BNDMq state table: bit m-j of shift[h] is set when some
	// pattern carries the 3-gram h at window position j.
	shift []word

	// bloom/pminlen exist on the scan set only: a per-bucket prefilter
	// over the first pminlen bytes of the bucket's patterns.
	bloom   []*utils.BloomFilter
	pminlen []uint8

	cnt1, cnt2, cntX int
	minLen, maxLen   int
}

// Matcher is the multi-pattern matcher handle. It is mutable until Compile
// and strictly read-only afterwards, so compiled matchers are shared across
// worker threads without locking.
type Matcher struct {
	cfg models.MatcherConfig

	dedup    map[patternKey]*pattern
	patterns []*pattern

	scan   setCtx
	search setCtx

	scanS0    int
	maxPatID  uint32
	totalAdds int
	compiled  bool

	hashMask uint32
}

// New creates an empty matcher with the given tunables.
func New(cfg models.MatcherConfig) *Matcher {
	return &Matcher{
		cfg:      cfg,
		dedup:    make(map[patternKey]*pattern),
		hashMask: uint32(cfg.HashSize - 1),
	}
}

// NewDefault creates a matcher with the default tunables.
func NewDefault() *Matcher {
	return New(models.DefaultConfig().Matcher)
}

// AddScanCS adds a case-sensitive pattern to the scan set.
func (m *Matcher) AddScanCS(pat []byte, offset, depth uint16, patID, sigID uint32) error {
	return m.add(pat, offset, depth, false, true, patID, sigID)
}

// AddScanCI adds a case-insensitive pattern to the scan set.
func (m *Matcher) AddScanCI(pat []byte, offset, depth uint16, patID, sigID uint32) error {
	return m.add(pat, offset, depth, true, true, patID, sigID)
}

// AddSearchCS adds a case-sensitive pattern to the search set.
func (m *Matcher) AddSearchCS(pat []byte, offset, depth uint16, patID, sigID uint32) error {
	return m.add(pat, offset, depth, false, false, patID, sigID)
}

// AddSearchCI adds a case-insensitive pattern to the search set.
func (m *Matcher) AddSearchCI(pat []byte, offset, depth uint16, patID, sigID uint32) error {
	return m.add(pat, offset, depth, true, false, patID, sigID)
}

// add deduplicates on (case flag, bytes): the first addition allocates the
// pattern and decides its set, later additions only append an end-match.
func (m *Matcher) add(pat []byte, offset, depth uint16, nocase, scan bool, patID, sigID uint32) error {
	if m.compiled {
		return ErrCompiled
	}
	if len(pat) == 0 {
		return ErrEmptyPattern
	}

	key := patternKey{nocase: nocase, bytes: string(pat)}
	p, ok := m.dedup[key]
	if !ok {
		if len(m.patterns) >= maxPatterns {
			return ErrTooManyPatterns
		}

		p = &pattern{nocase: nocase, scan: scan}
		p.ci = utils.ToLowerBytes(pat)
		if nocase || bytes.Equal(p.ci, pat) {
			p.cs = p.ci
		} else {
			p.cs = append([]byte(nil), pat...)
		}

		m.dedup[key] = p
		m.patterns = append(m.patterns, p)

		set := &m.search
		if scan {
			set = &m.scan
		}
		n := len(pat)
		if set.minLen == 0 || n < set.minLen {
			set.minLen = n
		}
		if n > set.maxLen {
			set.maxLen = n
		}
	}

	p.ends = append(p.ends, EndMatch{PatID: patID, SigID: sigID, Offset: offset, Depth: depth})
	if patID > m.maxPatID {
		m.maxPatID = patID
	}
	m.totalAdds++
	return nil
}

// PatternCount returns the number of unique patterns.
func (m *Matcher) PatternCount() int {
	return len(m.patterns)
}

// MaxPatID returns the highest pattern id seen.
func (m *Matcher) MaxPatID() uint32 {
	return m.maxPatID
}

// hash3 maps a lowercased 3-gram into the bucket space.
func (m *Matcher) hash3(a, b, c byte) uint32 {
	return (uint32(a)<<7 ^ uint32(b)<<4 ^ uint32(c)) & m.hashMask
}

// bloomHash is the hash family of the per-bucket bloom filters: a rolling
// byte accumulator, lowercased so raw buffer bytes and pattern bytes agree,
// spread per iteration by the shift.
func bloomHash(data []byte, iter uint8, size uint32) uint32 {
	h := uint32(utils.Lower(data[0]))
	for i := 1; i < len(data); i++ {
		h += uint32(utils.Lower(data[i])) ^ uint32(i)
	}
	h <<= iter + 1
	return h % size
}
