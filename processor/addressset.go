package processor

import (
	"fmt"

	"nids-engine/models"
	"nids-engine/parser"
)

// AddressNode is one element of a compiled address list: a range plus the set
// of rule ids whose expression covers it. On a source-side set the node can
// link to the destination container built from its rule set.
type AddressNode struct {
	Range  models.Range
	Sigs   *models.SigSet
	Linked *AddressSet
}

// AddressSet is the compiled form of one or more address expressions: three
// lists of pairwise-disjoint nodes in ascending order of range start. Any is
// populated only when an expression was literally "any"; such expressions
// also land in V4 and V6 as full-family spans so lookups stay uniform.
type AddressSet struct {
	V4  []*AddressNode
	V6  []*AddressNode
	Any []*AddressNode
}

// NewAddressSet returns an empty container.
func NewAddressSet() *AddressSet {
	return &AddressSet{}
}

// Parse compiles the address expression into the container, attaching sigs to
// every range the expression covers. Negation is resolved before anything is
// stored: the container never holds negated nodes.
func (s *AddressSet) Parse(expr string, sigs ...uint32) error {
	set := models.NewSigSet(sigs...)
	pos := NewAddressSet()
	neg := NewAddressSet()

	err := parser.WalkExpr(expr, func(atom string, negated bool) error {
		r, err := parser.ParseAtom(atom)
		if err != nil {
			return err
		}
		negated = negated || r.Flags&models.FlagNegated != 0
		r.Flags &^= models.FlagNegated

		if r.Flags&models.FlagAny != 0 {
			if negated {
				return fmt.Errorf("%w: negated 'any' matches nothing", parser.ErrExprSyntax)
			}
			return pos.insertAny(set)
		}
		if negated {
			return neg.Insert(r, nil)
		}
		return pos.Insert(r, set)
	})
	if err != nil {
		return err
	}

	if err := mergeNegations(pos, neg, set); err != nil {
		return err
	}

	// fold the per-expression result into the receiver
	for _, n := range pos.V4 {
		if err := s.Insert(n.Range, n.Sigs); err != nil {
			return err
		}
	}
	for _, n := range pos.V6 {
		if err := s.Insert(n.Range, n.Sigs); err != nil {
			return err
		}
	}
	for _, n := range pos.Any {
		if err := s.Insert(n.Range, n.Sigs); err != nil {
			return err
		}
	}
	return nil
}

// insertAny records a literal "any": the marker node plus full spans in both
// family lists.
func (s *AddressSet) insertAny(sigs *models.SigSet) error {
	if err := s.Insert(models.Range{Flags: models.FlagAny}, sigs); err != nil {
		return err
	}
	if err := s.Insert(models.UniverseV4(), sigs); err != nil {
		return err
	}
	return s.Insert(models.UniverseV6(), sigs)
}

// Insert adds one range with its rule-id set, cutting overlapping nodes so
// the per-family invariant (sorted, pairwise disjoint) holds afterwards.
func (s *AddressSet) Insert(r models.Range, sigs *models.SigSet) error {
	node := &AddressNode{Range: r, Sigs: sigs.Union(nil)}

	list, err := s.listFor(r)
	if err != nil {
		return err
	}
	updated, err := insertNode(*list, node)
	if err != nil {
		return err
	}
	*list = updated
	return nil
}

func (s *AddressSet) listFor(r models.Range) (*[]*AddressNode, error) {
	switch {
	case r.Flags&models.FlagAny != 0:
		return &s.Any, nil
	case r.Family == models.FamilyIPv4:
		return &s.V4, nil
	case r.Family == models.FamilyIPv6:
		return &s.V6, nil
	}
	return nil, fmt.Errorf("address range has no family: %s", r)
}

// insertNode walks the sorted list. Non-overlapping positions splice the node
// in directly; an overlap removes the existing node, cuts the pair into
// disjoint pieces and reinserts every piece. Each reinsertion strictly
// shrinks the remaining overlap, so the recursion terminates.
func insertNode(list []*AddressNode, node *AddressNode) ([]*AddressNode, error) {
	for i, cur := range list {
		switch node.Range.Compare(cur.Range) {
		case models.RelErr:
			return list, fmt.Errorf("%w: %s vs %s", models.ErrFamilyMismatch, node.Range, cur.Range)
		case models.RelEQ:
			cur.Sigs = cur.Sigs.Union(node.Sigs)
			return list, nil
		case models.RelLT:
			out := make([]*AddressNode, 0, len(list)+1)
			out = append(out, list[:i]...)
			out = append(out, node)
			out = append(out, list[i:]...)
			return out, nil
		case models.RelGT:
			continue
		default:
			rest := make([]*AddressNode, 0, len(list)+2)
			rest = append(rest, list[:i]...)
			rest = append(rest, list[i+1:]...)

			var err error
			for _, piece := range cutOverlap(node, cur) {
				rest, err = insertNode(rest, piece)
				if err != nil {
					return list, err
				}
			}
			return rest, nil
		}
	}
	return append(list, node), nil
}

// cutOverlap splits two overlapping, non-identical nodes into two or three
// disjoint pieces covering their union. The overlap piece carries the union
// of both rule sets; an outer piece carries the set of whichever node covered
// it alone.
func cutOverlap(a, b *AddressNode) []*AddressNode {
	fam := b.Range.Family

	// IPv4 addresses live in Words[0]; IPv6 steps over all 128 bits
	dec, inc := models.Words.Dec, models.Words.Inc
	if fam == models.FamilyIPv4 {
		dec = func(w models.Words) models.Words { return models.Words{w[0] - 1} }
		inc = func(w models.Words) models.Words { return models.Words{w[0] + 1} }
	}

	lo, loSigs := a.Range.Lo, a.Sigs
	if b.Range.Lo.Cmp(lo) < 0 {
		lo, loSigs = b.Range.Lo, b.Sigs
	}
	hi, hiSigs := a.Range.Hi, a.Sigs
	if b.Range.Hi.Cmp(hi) > 0 {
		hi, hiSigs = b.Range.Hi, b.Sigs
	}
	overlapLo := a.Range.Lo
	if b.Range.Lo.Cmp(overlapLo) > 0 {
		overlapLo = b.Range.Lo
	}
	overlapHi := a.Range.Hi
	if b.Range.Hi.Cmp(overlapHi) < 0 {
		overlapHi = b.Range.Hi
	}

	var pieces []*AddressNode
	if lo.Cmp(overlapLo) < 0 {
		pieces = append(pieces, &AddressNode{
			Range: models.Range{Family: fam, Lo: lo, Hi: dec(overlapLo)},
			Sigs:  loSigs.Union(nil),
		})
	}
	pieces = append(pieces, &AddressNode{
		Range: models.Range{Family: fam, Lo: overlapLo, Hi: overlapHi},
		Sigs:  a.Sigs.Union(b.Sigs),
	})
	if overlapHi.Cmp(hi) < 0 {
		pieces = append(pieces, &AddressNode{
			Range: models.Range{Family: fam, Lo: inc(overlapHi), Hi: hi},
			Sigs:  hiSigs.Union(nil),
		})
	}
	return pieces
}

// mergeNegations folds the negative container into the positive one.
//
// Step 0 seeds an empty positive family with the full span when that family
// has negations, so a pure-negation expression means "everything but".
// Step 1 inserts every negative range as if positive, fragmenting the
// positive list exactly at the negation boundaries. Step 2 then only needs a
// membership test: any node equal to or contained in a negative range goes.
func mergeNegations(pos, neg *AddressSet, sigs *models.SigSet) error {
	if len(pos.V4) == 0 && len(neg.V4) > 0 {
		if err := pos.Insert(models.UniverseV4(), sigs); err != nil {
			return err
		}
	}
	if len(pos.V6) == 0 && len(neg.V6) > 0 {
		if err := pos.Insert(models.UniverseV6(), sigs); err != nil {
			return err
		}
	}

	for _, n := range append(append([]*AddressNode{}, neg.V4...), neg.V6...) {
		if err := pos.Insert(n.Range, nil); err != nil {
			return err
		}
	}

	pos.V4 = dropNegated(pos.V4, neg.V4)
	pos.V6 = dropNegated(pos.V6, neg.V6)
	return nil
}

func dropNegated(list, negs []*AddressNode) []*AddressNode {
	if len(negs) == 0 {
		return list
	}
	kept := list[:0]
	for _, node := range list {
		removed := false
		for _, n := range negs {
			rel := n.Range.Compare(node.Range)
			if rel == models.RelEQ || rel == models.RelEB {
				removed = true
				break
			}
		}
		if !removed {
			kept = append(kept, node)
		}
	}
	return kept
}

// Lookup returns the unique node containing addr in the list of its family,
// or nil when no range covers it.
func (s *AddressSet) Lookup(family models.Family, addr models.Words) *AddressNode {
	var list []*AddressNode
	switch family {
	case models.FamilyIPv4:
		list = s.V4
	case models.FamilyIPv6:
		list = s.V6
	default:
		list = s.Any
	}
	for _, node := range list {
		if node.Range.Contains(family, addr) {
			return node
		}
	}
	return nil
}

// NodeCount returns the total number of compiled nodes.
func (s *AddressSet) NodeCount() int {
	return len(s.V4) + len(s.V6) + len(s.Any)
}

func (s *AddressSet) String() string {
	out := ""
	for _, n := range s.V4 {
		out += fmt.Sprintf("v4 %s sigs=%d\n", n.Range, n.Sigs.Len())
	}
	for _, n := range s.V6 {
		out += fmt.Sprintf("v6 %s sigs=%d\n", n.Range, n.Sigs.Len())
	}
	for _, n := range s.Any {
		out += fmt.Sprintf("any %s sigs=%d\n", n.Range, n.Sigs.Len())
	}
	return out
}
