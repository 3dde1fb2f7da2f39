// Package differ implements the Differencer collaborator (spec.md §6): a
// GumTree-style two-phase AST matcher exposing MatchTopDown (conservative,
// exact-subtree only — used between LEFT and RIGHT) and MatchFull (adds a
// bottom-up recovery phase — used between BASE and each side).
//
// Matching is grounded in a content-hash bucketing idiom (sha256 body
// hashing to detect unchanged units), generalized from "hash one unit's
// body" to "hash every subtree, bottom-up, and match whole identical
// subtrees top-down before falling back to per-node recovery."
package differ

import (
	"javamerge/ast"
	"javamerge/cas"
)

// Mapping is the Differencer's output contract (spec.md §6): a bijection
// (partial) between elements of two trees.
type Mapping interface {
	Src(dst ast.Element) (ast.Element, bool)
	Dst(src ast.Element) (ast.Element, bool)
	HasSrc(dst ast.Element) bool
	HasDst(src ast.Element) bool
	Remove(e ast.Element)
	Pairs() [][2]ast.Element
}

type mapping struct {
	srcToDst map[ast.Element]ast.Element
	dstToSrc map[ast.Element]ast.Element
}

func newMapping() *mapping {
	return &mapping{
		srcToDst: make(map[ast.Element]ast.Element),
		dstToSrc: make(map[ast.Element]ast.Element),
	}
}

func (m *mapping) link(src, dst ast.Element) {
	m.srcToDst[src] = dst
	m.dstToSrc[dst] = src
}

func (m *mapping) Src(dst ast.Element) (ast.Element, bool) { e, ok := m.dstToSrc[dst]; return e, ok }
func (m *mapping) Dst(src ast.Element) (ast.Element, bool) { e, ok := m.srcToDst[src]; return e, ok }
func (m *mapping) HasSrc(dst ast.Element) bool             { _, ok := m.dstToSrc[dst]; return ok }
func (m *mapping) HasDst(src ast.Element) bool             { _, ok := m.srcToDst[src]; return ok }

func (m *mapping) Remove(e ast.Element) {
	if dst, ok := m.srcToDst[e]; ok {
		delete(m.srcToDst, e)
		delete(m.dstToSrc, dst)
		return
	}
	if src, ok := m.dstToSrc[e]; ok {
		delete(m.dstToSrc, e)
		delete(m.srcToDst, src)
	}
}

func (m *mapping) Pairs() [][2]ast.Element {
	out := make([][2]ast.Element, 0, len(m.srcToDst))
	for s, d := range m.srcToDst {
		out = append(out, [2]ast.Element{s, d})
	}
	return out
}

// Matcher is the concrete Differencer.
type Matcher struct{}

// NewMatcher returns a Matcher. It is stateless and safe to share, but each
// match call builds its own scratch indices.
func NewMatcher() *Matcher { return &Matcher{} }

type nodeInfo struct {
	hash   []byte
	height int
}

// index memoizes exactHash/height for every descendant of root.
func index(root ast.Element) map[ast.Element]nodeInfo {
	info := make(map[ast.Element]nodeInfo)
	var walk func(ast.Element) nodeInfo
	walk = func(e ast.Element) nodeInfo {
		var childHashes [][]byte
		height := 0
		for _, role := range e.Roles() {
			for _, c := range e.Children(role) {
				ci := walk(c)
				childHashes = append(childHashes, ci.hash)
				if ci.height+1 > height {
					height = ci.height + 1
				}
			}
		}
		var h []byte
		if len(childHashes) == 0 {
			h = cas.Blake3Hash([]byte(string(e.Kind()) + "\x00" + e.Source()))
		} else {
			h = cas.ShapeHash(string(e.Kind())+"\x00"+leafSignature(e), childHashes)
		}
		ni := nodeInfo{hash: h, height: height}
		info[e] = ni
		return ni
	}
	walk(root)
	return info
}

// leafSignature folds in an element's own (non-child) source text so that
// two structurally identical containers with different own-text (e.g. two
// methods with different names but identical bodies) still hash distinctly
// at their own level, even though MatchTopDown may still unify their bodies.
func leafSignature(e ast.Element) string {
	return string(e.RoleInParent()) + "\x00" + e.Source()
}

// MatchTopDown matches only exactly-identical subtrees, and only when the
// match is unambiguous (exactly one remaining candidate on each side at a
// given hash bucket). This is the conservative matcher spec.md §4.10
// mandates between LEFT and RIGHT.
func (m *Matcher) MatchTopDown(src, dst ast.Element) Mapping {
	result := newMapping()
	m.matchIdenticalSubtrees(src, dst, result)
	return result
}

// MatchFull runs MatchTopDown, then a bottom-up recovery phase that matches
// same-kind containers whose already-matched descendant ratio (dice
// coefficient) is highest, descending into their children positionally.
func (m *Matcher) MatchFull(src, dst ast.Element) Mapping {
	result := newMapping()
	m.matchIdenticalSubtrees(src, dst, result)
	m.bottomUpRecover(src, dst, result)
	return result
}

func (m *Matcher) matchIdenticalSubtrees(src, dst ast.Element, result *mapping) {
	srcInfo := index(src)
	dstInfo := index(dst)

	srcByHash := make(map[string][]ast.Element)
	for e, ni := range srcInfo {
		k := string(ni.hash)
		srcByHash[k] = append(srcByHash[k], e)
	}
	dstByHash := make(map[string][]ast.Element)
	for e, ni := range dstInfo {
		k := string(ni.hash)
		dstByHash[k] = append(dstByHash[k], e)
	}

	// Process larger subtrees first so a whole-method match is recorded
	// before trying to match its individual statements independently.
	var buckets []hashBucket
	seen := make(map[string]bool)
	for _, ni := range srcInfo {
		k := string(ni.hash)
		if seen[k] {
			continue
		}
		seen[k] = true
		buckets = append(buckets, hashBucket{hash: k, height: ni.height})
	}
	sortBucketsByHeightDesc(buckets)

	for _, b := range buckets {
		srcCands := unmatched(srcByHash[b.hash], result.HasDst)
		dstCands := unmatched(dstByHash[b.hash], result.HasSrc)
		if len(srcCands) == 1 && len(dstCands) == 1 {
			linkSubtree(srcCands[0], dstCands[0], result)
		}
	}
}

func unmatched(cands []ast.Element, already func(ast.Element) bool) []ast.Element {
	var out []ast.Element
	for _, c := range cands {
		if !already(c) {
			out = append(out, c)
		}
	}
	return out
}

// linkSubtree matches s and d (known to have identical exactHash, hence
// identical shape and leaf text) and every corresponding descendant pair.
func linkSubtree(s, d ast.Element, result *mapping) {
	if result.HasDst(s) || result.HasSrc(d) {
		return
	}
	result.link(s, d)
	sRoles, dRoles := s.Roles(), d.Roles()
	if len(sRoles) != len(dRoles) {
		return
	}
	for i, role := range sRoles {
		sc := s.Children(role)
		dc := d.Children(dRoles[i])
		if len(sc) != len(dc) {
			continue
		}
		for j := range sc {
			linkSubtree(sc[j], dc[j], result)
		}
	}
}

type hashBucket struct {
	hash   string
	height int
}

func sortBucketsByHeightDesc(b []hashBucket) {
	for i := 1; i < len(b); i++ {
		for j := i; j > 0 && b[j].height > b[j-1].height; j-- {
			b[j], b[j-1] = b[j-1], b[j]
		}
	}
}

func (m *Matcher) bottomUpRecover(src, dst ast.Element, result *mapping) {
	srcNodes := postOrder(src)
	for _, s := range srcNodes {
		if result.HasDst(s) {
			continue
		}
		best, score := bestCandidate(s, dst, result)
		if best != nil && score > 0 {
			result.link(s, best)
			alignChildren(s, best, result)
		}
	}
}

func postOrder(root ast.Element) []ast.Element {
	var out []ast.Element
	var walk func(ast.Element)
	walk = func(e ast.Element) {
		for _, role := range e.Roles() {
			for _, c := range e.Children(role) {
				walk(c)
			}
		}
		out = append(out, e)
	}
	walk(root)
	return out
}

// bestCandidate finds the unmatched dst descendant of the same Kind as s
// with the highest dice coefficient of already-matched descendant pairs.
func bestCandidate(s ast.Element, dstRoot ast.Element, result *mapping) (ast.Element, float64) {
	var best ast.Element
	bestScore := 0.0
	for _, d := range ast.Descendants(dstRoot) {
		if result.HasSrc(d) || d.Kind() != s.Kind() {
			continue
		}
		score := diceScore(s, d, result)
		if score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best, bestScore
}

func diceScore(s, d ast.Element, result *mapping) float64 {
	sDesc := ast.Descendants(s)
	dDesc := ast.Descendants(d)
	if len(sDesc) == 0 || len(dDesc) == 0 {
		return 0
	}
	common := 0
	for _, sd := range sDesc {
		if dm, ok := result.Dst(sd); ok {
			for _, dd := range dDesc {
				if dd == dm {
					common++
					break
				}
			}
		}
	}
	return 2 * float64(common) / float64(len(sDesc)+len(dDesc))
}

// alignChildren pairs s's and d's children positionally within each shared
// role when both are unmatched and share a Kind, a conservative stand-in
// for a full edit-script alignment.
func alignChildren(s, d ast.Element, result *mapping) {
	for _, role := range s.Roles() {
		sc := s.Children(role)
		dc := d.Children(role)
		si, di := 0, 0
		for si < len(sc) && di < len(dc) {
			if result.HasDst(sc[si]) {
				si++
				continue
			}
			if result.HasSrc(dc[di]) {
				di++
				continue
			}
			if sc[si].Kind() == dc[di].Kind() {
				result.link(sc[si], dc[di])
				alignChildren(sc[si], dc[di], result)
				si++
				di++
			} else {
				si++
			}
		}
	}
}
