package processor

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"nids-engine/matcher"
	"nids-engine/models"
	"nids-engine/parser"
)

var log = logrus.WithField("component", "detect")

// Engine composes the two detection cores: the compiled source/destination
// address sets narrow each packet down to a candidate rule set, the
// multi-pattern matcher finds content hits, and Match intersects the two.
type Engine struct {
	cfg models.Config

	Rules     []*models.Rule
	RulesPath string
	Failed    int

	src      *AddressSet
	mpm      *matcher.Matcher
	rulePats [][]uint32
	compiled bool

	statePool sync.Pool
}

// ThreadState is the per-worker mutable state for Match. The engine itself
// is immutable after Compile.
type ThreadState struct {
	TC      *matcher.ThreadCtx
	ScanQ   matcher.Queue
	SearchQ matcher.Queue
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg models.Config) *Engine {
	return &Engine{cfg: cfg, src: NewAddressSet()}
}

// LoadRuleFile reads a rule file and parses it with the per-rule rejection
// policy of ParseRuleLines. Returns the accepted rules and the rejected
// count.
func LoadRuleFile(path string) ([]*models.Rule, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot open rules file %s: %w", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("error reading rules file %s: %w", path, err)
	}

	rules, failed := ParseRuleLines(lines)
	return rules, failed, nil
}

// ParseRuleLines parses raw rule lines. Blank lines and '#' comments are
// skipped; a line that fails to parse, or whose address expressions fail to
// compile, is rejected with a diagnostic naming the offending text and
// parsing continues.
func ParseRuleLines(lines []string) ([]*models.Rule, int) {
	var rules []*models.Rule
	failed := 0

	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rule, err := parser.ParseRule(text)
		if err != nil {
			failed++
			log.WithField("rule", text).Warnf("rejecting rule: %v", err)
			continue
		}
		if err := checkAddresses(rule); err != nil {
			failed++
			log.WithField("rule", text).Warnf("rejecting rule: %v", err)
			continue
		}
		rules = append(rules, rule)
	}
	return rules, failed
}

// LoadRules reads a rule file into the engine.
func (e *Engine) LoadRules(path string) error {
	rules, failed, err := LoadRuleFile(path)
	if err != nil {
		return err
	}
	e.RulesPath = path
	e.AddParsedRules(rules, failed)
	return nil
}

// LoadRuleLines loads rules from raw lines, applying the same per-rule
// rejection policy as LoadRules.
func (e *Engine) LoadRuleLines(lines []string) {
	rules, failed := ParseRuleLines(lines)
	e.AddParsedRules(rules, failed)
}

// AddParsedRules adds rules that already passed parsing and address
// validation (e.g. from a ruleset cache). No-op once the engine is compiled.
func (e *Engine) AddParsedRules(rules []*models.Rule, failed int) {
	if e.compiled {
		return
	}
	e.Rules = append(e.Rules, rules...)
	e.Failed += failed
}

// checkAddresses compiles both address expressions into throwaway sets so a
// bad expression rejects the rule at load time, not at engine compile time.
func checkAddresses(rule *models.Rule) error {
	if err := NewAddressSet().Parse(rule.Source); err != nil {
		return fmt.Errorf("source address %q: %w", rule.Source, err)
	}
	if err := NewAddressSet().Parse(rule.Destination); err != nil {
		return fmt.Errorf("destination address %q: %w", rule.Destination, err)
	}
	return nil
}

// Compile builds the address sets and the pattern matcher. The source set is
// compiled over all rules; every source node gets a linked destination set
// built from the rules covering that node. The longest content of each rule
// feeds the scan set and the rule's other contents feed the search set.
func (e *Engine) Compile() error {
	if e.compiled {
		return fmt.Errorf("engine is already compiled")
	}

	for idx, rule := range e.Rules {
		if err := e.src.Parse(rule.Source, uint32(idx)); err != nil {
			return fmt.Errorf("rule %d source: %w", idx, err)
		}
	}

	for _, node := range append(append([]*AddressNode{}, e.src.V4...), e.src.V6...) {
		node.Linked = NewAddressSet()
		for _, idx := range node.Sigs.IDs() {
			if err := node.Linked.Parse(e.Rules[idx].Destination, idx); err != nil {
				return fmt.Errorf("rule %d destination: %w", idx, err)
			}
		}
	}

	e.mpm = matcher.New(e.cfg.Matcher)
	e.rulePats = make([][]uint32, len(e.Rules))

	var nextPatID uint32
	for idx, rule := range e.Rules {
		longest := rule.LongestContent()
		for ci, c := range rule.Contents {
			patID := nextPatID
			nextPatID++
			e.rulePats[idx] = append(e.rulePats[idx], patID)

			// the rule's longest content drives the scan prefilter;
			// the rest belongs to the search set
			var err error
			switch {
			case ci == longest && c.Nocase:
				err = e.mpm.AddScanCI(c.Bytes, c.Offset, c.Depth, patID, uint32(idx))
			case ci == longest:
				err = e.mpm.AddScanCS(c.Bytes, c.Offset, c.Depth, patID, uint32(idx))
			case c.Nocase:
				err = e.mpm.AddSearchCI(c.Bytes, c.Offset, c.Depth, patID, uint32(idx))
			default:
				err = e.mpm.AddSearchCS(c.Bytes, c.Offset, c.Depth, patID, uint32(idx))
			}
			if err != nil {
				return err
			}
		}
	}

	if err := e.mpm.Compile(); err != nil {
		return err
	}
	e.compiled = true

	log.WithFields(logrus.Fields{
		"rules":    len(e.Rules),
		"rejected": e.Failed,
		"patterns": e.mpm.PatternCount(),
		"nodes":    e.src.NodeCount(),
	}).Info("engine compiled")
	return nil
}

// NewThreadState creates per-worker scratch state for Match.
func (e *Engine) NewThreadState() *ThreadState {
	return &ThreadState{TC: e.mpm.ThreadCtx()}
}

// Match evaluates one packet with pooled thread state.
func (e *Engine) Match(pkt *models.Packet) ([]models.Alert, error) {
	if !e.compiled {
		return nil, fmt.Errorf("engine is not compiled")
	}
	ts, _ := e.statePool.Get().(*ThreadState)
	if ts == nil {
		ts = e.NewThreadState()
	}
	defer e.statePool.Put(ts)
	return e.MatchWithState(ts, pkt)
}

// MatchWithState evaluates one packet using caller-owned thread state.
func (e *Engine) MatchWithState(ts *ThreadState, pkt *models.Packet) ([]models.Alert, error) {
	if !e.compiled {
		return nil, fmt.Errorf("engine is not compiled")
	}

	srcNode := e.src.Lookup(pkt.SrcFamily, pkt.Src)
	if srcNode == nil {
		return nil, nil
	}
	dstNode := srcNode.Linked.Lookup(pkt.DstFamily, pkt.Dst)
	if dstNode == nil {
		return nil, nil
	}
	candidates := dstNode.Sigs

	ts.ScanQ.Reset()
	if _, err := e.mpm.Scan(ts.TC, &ts.ScanQ, pkt.Payload); err != nil {
		return nil, err
	}
	scanned := make(map[uint32]bool, len(ts.ScanQ.Matches))
	for _, mt := range ts.ScanQ.Matches {
		scanned[mt.SigID] = true
	}

	// the search pass runs once, lazily, only when some candidate got past
	// the scan prefilter; scan hits count as content evidence too, since a
	// content deduplicated into the scan set never reaches the search set
	searched := false
	var byPat map[uint32][]matcher.Match

	var alerts []models.Alert
	for _, idx := range candidates.IDs() {
		rule := e.Rules[idx]

		if len(rule.Contents) == 0 {
			if !rule.NoAlert {
				alerts = append(alerts, models.Alert{
					SID: rule.SID, Rev: rule.Rev, Msg: rule.Msg, RuleIdx: idx,
				})
			}
			continue
		}
		if !scanned[idx] {
			continue
		}

		if !searched {
			ts.SearchQ.Reset()
			if _, err := e.mpm.Search(ts.TC, &ts.SearchQ, pkt.Payload); err != nil {
				return nil, err
			}
			byPat = make(map[uint32][]matcher.Match)
			for _, mt := range ts.ScanQ.Matches {
				byPat[mt.PatID] = append(byPat[mt.PatID], mt)
			}
			for _, mt := range ts.SearchQ.Matches {
				byPat[mt.PatID] = append(byPat[mt.PatID], mt)
			}
			searched = true
		}

		pos, ok := e.ruleSatisfied(rule, e.rulePats[idx], byPat)
		if ok && !rule.NoAlert {
			alerts = append(alerts, models.Alert{
				SID: rule.SID, Rev: rule.Rev, Msg: rule.Msg, RuleIdx: idx, Position: pos,
			})
		}
	}
	return alerts, nil
}

// ruleSatisfied checks that every content of the rule matched, chaining
// distance/within constraints relative to the previous content's match.
func (e *Engine) ruleSatisfied(rule *models.Rule, pats []uint32, byPat map[uint32][]matcher.Match) (int, bool) {
	prevEnd := -1
	firstPos := 0

	for ci := range rule.Contents {
		c := &rule.Contents[ci]
		chosen := -1

		for _, mt := range byPat[pats[ci]] {
			if ci > 0 {
				if c.HasDistance && mt.Pos < prevEnd+c.Distance {
					continue
				}
				if c.HasWithin && mt.Pos+mt.Len > prevEnd+c.Within {
					continue
				}
			}
			chosen = mt.Pos
			prevEnd = mt.Pos + mt.Len
			break
		}
		if chosen < 0 {
			return 0, false
		}
		if ci == 0 {
			firstPos = chosen
		}
	}
	return firstPos, true
}

// Source exposes the compiled source address set (read-only).
func (e *Engine) Source() *AddressSet {
	return e.src
}

// Matcher exposes the compiled pattern matcher (read-only).
func (e *Engine) Matcher() *matcher.Matcher {
	return e.mpm
}

// Report summarizes the engine state into a ScanReport skeleton.
func (e *Engine) Report() models.ScanReport {
	rep := models.ScanReport{
		RulesFile:   e.RulesPath,
		RulesLoaded: len(e.Rules),
		RulesFailed: e.Failed,
	}
	if e.mpm != nil {
		rep.PatternCount = e.mpm.PatternCount()
	}
	return rep
}
