package matcher

import (
	"bytes"

	"nids-engine/utils"
)

// Scan runs the scan pattern set over buf, appending every match to q.
// Returns the number of appended matches. The entry path depends on the
// shortest patterns present: 1-byte and 2-byte walkers chain into the BNDMq
// core so one call reports matches of every length.
func (m *Matcher) Scan(tc *ThreadCtx, q *Queue, buf []byte) (int, error) {
	if !m.compiled {
		return 0, ErrNotCompiled
	}
	tc.begin()

	switch {
	case m.scan.cnt1 > 0:
		return m.scan1(tc, q, buf), nil
	case m.scan.cnt2 > 0:
		return m.scan2(tc, q, buf), nil
	default:
		return m.scanBNDMq(tc, q, buf), nil
	}
}

// scanBNDMq is the q-gram BNDM core over the scan set. The window advances
// by m-2 positions per round; inside a round the shift masks walk backwards
// through the window and bit m-1 of the state signals a window-long prefix
// hit that is worth verifying.
func (m *Matcher) scanBNDMq(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.scan
	n := len(buf)
	if n < s.m {
		return 0
	}

	matches := 0
	adv := s.m - gramSize + 1
	hibit := word(1) << uint(s.m-1)

	pos := adv
	for pos <= n-gramSize+1 {
		h := m.hash3(utils.Lower(buf[pos-1]), utils.Lower(buf[pos]), utils.Lower(buf[pos+1]))
		d := s.shift[h]

		if d != 0 {
			j := pos
			first := pos - adv
			for {
				j--
				if d >= hibit {
					if j > first {
						pos = j
					} else {
						matches += m.verifyScan(tc, q, buf, j)
						break
					}
				}
				if j == 0 {
					break
				}
				h = m.hash3(utils.Lower(buf[j-1]), utils.Lower(buf[j]), utils.Lower(buf[j+1]))
				d = (d << 1) & s.shift[h]
				if d == 0 {
					break
				}
			}
		}
		pos += adv
	}
	return matches
}

// verifyScan checks every scan pattern in the 3-gram bucket at window start
// j. The bloom filter short-circuits buckets whose patterns cannot be
// present; a bloom miss is authoritative.
func (m *Matcher) verifyScan(tc *ThreadCtx, q *Queue, buf []byte, j int) int {
	s := &m.scan
	n := len(buf)

	h := m.hash3(utils.Lower(buf[j+s.m-3]), utils.Lower(buf[j+s.m-2]), utils.Lower(buf[j+s.m-1]))

	if s.bloom != nil && s.bloom[h] != nil {
		pm := int(s.pminlen[h])
		if n-j < pm {
			return 0
		}
		if !s.bloom[h].Test(buf[j : j+pm]) {
			return 0
		}
	}

	matches := 0
	for _, idx := range s.hash[h] {
		p := m.patterns[idx]
		if n-j < p.len() {
			continue
		}
		if p.nocase {
			if !utils.EqualLower(p.ci, buf[j:j+p.len()]) {
				continue
			}
		} else {
			if !bytes.Equal(p.cs, buf[j:j+p.len()]) {
				continue
			}
		}
		for _, em := range p.ends {
			if tc.emit(q, em, j, p.len()) {
				matches++
			}
		}
	}
	return matches
}

// scan1 walks the buffer byte-by-byte against the 1-byte scan patterns, then
// falls through to the longer-pattern paths.
func (m *Matcher) scan1(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.scan
	matches := 0

	for i := 0; i < len(buf); i++ {
		for _, idx := range s.hash1[utils.Lower(buf[i])] {
			p := m.patterns[idx]
			if p.len() != 1 {
				continue
			}
			if !p.nocase && buf[i] != p.cs[0] {
				continue
			}
			for _, em := range p.ends {
				if tc.emit(q, em, i, 1) {
					matches++
				}
			}
		}
	}

	if s.cnt2 > 0 {
		matches += m.scan2(tc, q, buf)
	} else if s.cntX > 0 {
		matches += m.scanBNDMq(tc, q, buf)
	}
	return matches
}

// scan2 walks byte pairs against the 2-byte scan patterns, then falls
// through to the BNDMq core.
func (m *Matcher) scan2(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.scan
	matches := 0

	for i := 0; i+1 < len(buf); i++ {
		h := uint32(utils.Lower(buf[i]))<<8 | uint32(utils.Lower(buf[i+1]))
		for _, idx := range s.hash2[h] {
			p := m.patterns[idx]
			if p.len() != 2 {
				continue
			}
			if !p.nocase && (buf[i] != p.cs[0] || buf[i+1] != p.cs[1]) {
				continue
			}
			for _, em := range p.ends {
				if tc.emit(q, em, i, 2) {
					matches++
				}
			}
		}
	}

	if s.cntX > 0 {
		matches += m.scanBNDMq(tc, q, buf)
	}
	return matches
}
