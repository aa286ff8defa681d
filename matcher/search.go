package matcher

import (
	"bytes"

	"nids-engine/utils"
)

// Search runs the search pattern set over buf, appending every match to q.
// Entry-path selection mirrors Scan.
func (m *Matcher) Search(tc *ThreadCtx, q *Queue, buf []byte) (int, error) {
	if !m.compiled {
		return 0, ErrNotCompiled
	}
	tc.begin()

	switch {
	case m.search.cnt1 > 0:
		return m.search1(tc, q, buf), nil
	case m.search.cnt2 > 0:
		return m.search2(tc, q, buf), nil
	default:
		return m.searchBNDM(tc, q, buf), nil
	}
}

// searchBNDM is the plain backward-gram loop over the search set: the state
// word walks the window back to front and survives only while every gram is
// a known window gram; a surviving state means a verification at pos.
func (m *Matcher) searchBNDM(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.search
	n := len(buf)
	if n < s.m {
		return 0
	}

	matches := 0
	pos := 0
	for pos <= n-s.m {
		j := s.m - 2
		d := ^word(0)
		for {
			h := m.hash3(utils.Lower(buf[pos+j-1]), utils.Lower(buf[pos+j]), utils.Lower(buf[pos+j+1]))
			d &= s.shift[h]
			d <<= 1
			j--
			if d == 0 || j == 0 {
				break
			}
		}

		if d != 0 {
			matches += m.verifySearch(tc, q, buf, pos)
			pos++
		} else {
			pos += j + 1
		}
	}
	return matches
}

// verifySearch checks every search pattern in the 3-gram bucket anchored at
// pos. The search set carries no bloom prefilter.
func (m *Matcher) verifySearch(tc *ThreadCtx, q *Queue, buf []byte, pos int) int {
	s := &m.search
	n := len(buf)

	h := m.hash3(utils.Lower(buf[pos+s.m-3]), utils.Lower(buf[pos+s.m-2]), utils.Lower(buf[pos+s.m-1]))

	matches := 0
	for _, idx := range s.hash[h] {
		p := m.patterns[idx]
		if n-pos < p.len() {
			continue
		}
		if p.nocase {
			if !utils.EqualLower(p.ci, buf[pos:pos+p.len()]) {
				continue
			}
		} else {
			if !bytes.Equal(p.cs, buf[pos:pos+p.len()]) {
				continue
			}
		}
		for _, em := range p.ends {
			if tc.emit(q, em, pos, p.len()) {
				matches++
			}
		}
	}
	return matches
}

// search1 walks single bytes against the 1-byte search patterns, then falls
// through to the longer-pattern paths.
func (m *Matcher) search1(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.search
	matches := 0

	if s.minLen == 1 {
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
	}

	if s.cnt2 > 0 {
		matches += m.search2(tc, q, buf)
	} else if s.cntX > 0 {
		matches += m.searchBNDM(tc, q, buf)
	}
	return matches
}

// search2 walks byte pairs against the 2-byte search patterns, then falls
// through to the gram loop.
func (m *Matcher) search2(tc *ThreadCtx, q *Queue, buf []byte) int {
	s := &m.search
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
		matches += m.searchBNDM(tc, q, buf)
	}
	return matches
}
