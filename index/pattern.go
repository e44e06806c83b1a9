package index

import "strings"

const (
	// AnyChar matches exactly one character in a pattern string.
	AnyChar = '?'

	// AnyRun matches any run of characters, including none, in a pattern string.
	AnyRun = '*'
)

type tokenKind uint8

const (
	tokLiteral tokenKind = iota
	tokAny
	tokStar
)

type token struct {
	kind tokenKind
	ch   byte
}

// Pattern is a compiled wildcard pattern. Build one with ParsePattern or by
// chaining Literal, Any and Star on the zero value; the builder methods never
// interpret wildcard characters inside literals.
type Pattern []token

// ParsePattern compiles a pattern string in which '?' and '*' are wildcards.
func ParsePattern(s string) Pattern {
	p := make(Pattern, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case AnyChar:
			p = p.Any(1)
		case AnyRun:
			p = p.Star()
		default:
			p = append(p, token{kind: tokLiteral, ch: s[i]})
		}
	}
	return p
}

// Literal appends s, matched character by character.
func (p Pattern) Literal(s string) Pattern {
	for i := 0; i < len(s); i++ {
		p = append(p, token{kind: tokLiteral, ch: s[i]})
	}
	return p
}

// Any appends n single-character wildcards.
func (p Pattern) Any(n int) Pattern {
	for i := 0; i < n; i++ {
		p = append(p, token{kind: tokAny})
	}
	return p
}

// Star appends a run wildcard. Consecutive stars collapse into one.
func (p Pattern) Star() Pattern {
	if len(p) > 0 && p[len(p)-1].kind == tokStar {
		return p
	}
	return append(p, token{kind: tokStar})
}

// String renders p in ParsePattern syntax.
func (p Pattern) String() string {
	var b strings.Builder
	for _, tok := range p {
		switch tok.kind {
		case tokAny:
			b.WriteByte(AnyChar)
		case tokStar:
			b.WriteByte(AnyRun)
		default:
			b.WriteByte(tok.ch)
		}
	}
	return b.String()
}

// matcher walks a tree against a pattern. A state (n, pi) means: the next key
// character is chosen from the sibling tree rooted at n and must satisfy
// pattern token pi. States are visited at most once.
type matcher struct {
	t       *Tree
	pat     Pattern
	tailAll []bool // tailAll[i]: pat[i:] matches the empty string
	visited map[uint64]struct{}
	seen    map[int32]struct{}
	out     []Entry
}

func newMatcher(t *Tree, p Pattern) *matcher {
	tailAll := make([]bool, len(p)+1)
	tailAll[len(p)] = true
	for i := len(p) - 1; i >= 0; i-- {
		tailAll[i] = tailAll[i+1] && p[i].kind == tokStar
	}
	return &matcher{
		t:       t,
		pat:     p,
		tailAll: tailAll,
		visited: make(map[uint64]struct{}),
		seen:    make(map[int32]struct{}),
	}
}

func (m *matcher) emit(e int32) {
	if e == noEntry {
		return
	}
	if _, ok := m.seen[e]; ok {
		return
	}
	m.seen[e] = struct{}{}
	m.out = append(m.out, m.t.entries[e])
}

func (m *matcher) walk(n int32, pi int) {
	if n == nilNode || pi == len(m.pat) {
		return
	}
	state := uint64(uint32(n))<<32 | uint64(uint32(pi))
	if _, ok := m.visited[state]; ok {
		return
	}
	m.visited[state] = struct{}{}

	if m.tailAll[pi] {
		// only stars remain: everything below n matches
		m.t.eachEntry(n, m.emit)
		return
	}

	tok := m.pat[pi]
	switch tok.kind {
	case tokStar:
		m.walk(n, pi+1)
		m.t.eachSibling(n, func(x int32) { m.consume(x, pi) })
	case tokAny:
		m.t.eachSibling(n, func(x int32) { m.consume(x, pi+1) })
	default:
		if x := m.t.sibling(n, tok.ch); x != nilNode {
			m.consume(x, pi+1)
		}
	}
}

// consume accepts node x as the current key character; pi is the next
// pattern position.
func (m *matcher) consume(x int32, pi int) {
	if m.tailAll[pi] {
		m.emit(m.t.nodes[x].entry)
	}
	m.walk(m.t.nodes[x].eq, pi)
}
