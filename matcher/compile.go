package matcher

import (
	"nids-engine/utils"
)

// Compile freezes the pattern sets into their dispatch structures. After a
// successful Compile the matcher is immutable.
func (m *Matcher) Compile() error {
	if m.compiled {
		return ErrCompiled
	}

	m.scan.m = clampWindow(m.scan.minLen)
	m.search.m = clampWindow(m.search.minLen)

	m.prepareSet(&m.scan, true)
	m.prepareSet(&m.search, false)

	// A tighter shift is derivable but must never exceed the safe bound;
	// one is always safe.
	m.scanS0 = 1

	m.dedup = nil
	m.compiled = true
	return nil
}

// clampWindow clamps the window length into [gramSize, maxWindow].
func clampWindow(minLen int) int {
	switch {
	case minLen < gramSize:
		return gramSize
	case minLen > maxWindow:
		return maxWindow
	}
	return minLen
}

func (m *Matcher) prepareSet(s *setCtx, scan bool) {
	s.hash = make([][]uint16, m.cfg.HashSize)
	s.shift = make([]word, m.cfg.HashSize)
	if scan {
		s.pminlen = make([]uint8, m.cfg.HashSize)
	}

	for idx, p := range m.patterns {
		if p.scan != scan {
			continue
		}

		switch p.len() {
		case 1:
			if s.hash1 == nil {
				s.hash1 = make([][]uint16, 256)
			}
			b := p.ci[0]
			s.hash1[b] = append(s.hash1[b], uint16(idx))
			s.cnt1++
		case 2:
			if s.hash2 == nil {
				s.hash2 = make([][]uint16, 65536)
			}
			h := uint32(p.ci[0])<<8 | uint32(p.ci[1])
			s.hash2[h] = append(s.hash2[h], uint16(idx))
			s.cnt2++
		default:
			h := m.hash3(p.ci[s.m-3], p.ci[s.m-2], p.ci[s.m-1])
			if scan {
				if len(s.hash[h]) == 0 || p.len() < int(s.pminlen[h]) {
					pm := p.len()
					if pm > 255 {
						pm = 255
					}
					s.pminlen[h] = uint8(pm)
				}
			}
			s.hash[h] = append(s.hash[h], uint16(idx))
			s.cntX++
		}
	}

	m.buildShift(s, scan)
	if scan && m.cfg.BloomSize > 0 {
		m.buildBloom(s)
	}
}

// buildShift fills the BNDMq shift masks: for every pattern long enough to
// take part in the window game, every 3-gram window position j contributes
// bit m-j to its gram's mask.
func (m *Matcher) buildShift(s *setCtx, scan bool) {
	for j := 0; j <= s.m-gramSize; j++ {
		for _, p := range m.patterns {
			if p.scan != scan || p.len() < s.m {
				continue
			}
			h := m.hash3(p.ci[j], p.ci[j+1], p.ci[j+2])
			s.shift[h] |= 1 << uint(s.m-j)
		}
	}
}

// buildBloom seeds a bloom filter per non-empty 3-gram bucket over the first
// pminlen bytes (capped at bloomPrefixCap) of every pattern in the bucket.
func (m *Matcher) buildBloom(s *setCtx) {
	s.bloom = make([]*utils.BloomFilter, m.cfg.HashSize)

	for h, bucket := range s.hash {
		if len(bucket) == 0 {
			continue
		}

		if s.pminlen[h] > bloomPrefixCap {
			s.pminlen[h] = bloomPrefixCap
		}

		bf := utils.NewBloomFilter(uint32(m.cfg.BloomSize), bloomIterations, bloomHash)
		if bf == nil {
			continue
		}
		s.bloom[h] = bf

		for _, idx := range bucket {
			p := m.patterns[idx]
			bf.Add(p.ci[:s.pminlen[h]])
		}
	}
}
