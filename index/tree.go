// Package index implements the fuzzy string index behind phone completion: a
// ternary search tree whose nodes live in a single arena slice and reference
// each other by position.
//
// Every query returns entries in ascending byte-wise key order. The tree is not
// safe for concurrent mutation; once populated it may be queried from any
// number of goroutines.
package index

import (
	"errors"
	"slices"
	"strings"
)

// ErrEmptyKey is returned by Insert for an empty key.
var ErrEmptyKey = errors.New("empty key")

// Entry is a stored key and its payload.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

const (
	// nilNode is the arena slot reserved as the absent child.
	nilNode int32 = 0

	// noEntry marks a node that terminates no key.
	noEntry int32 = -1
)

type node struct {
	ch    byte
	lo    int32
	eq    int32
	hi    int32
	entry int32
}

// Tree is a ternary search tree keyed by strings.
type Tree struct {
	nodes   []node
	entries []Entry
	root    int32
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{
		nodes: []node{{entry: noEntry}},
		root:  nilNode,
	}
}

func (t *Tree) newNode(c byte) int32 {
	t.nodes = append(t.nodes, node{ch: c, entry: noEntry})
	return int32(len(t.nodes) - 1)
}

// Insert stores value under key. An existing value for the same key is
// replaced.
func (t *Tree) Insert(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	if t.root == nilNode {
		t.root = t.newNode(key[0])
	}

	n := t.root
	i := 0
	for {
		c := key[i]
		switch {
		case c < t.nodes[n].ch:
			if t.nodes[n].lo == nilNode {
				child := t.newNode(c)
				t.nodes[n].lo = child
			}
			n = t.nodes[n].lo
		case c > t.nodes[n].ch:
			if t.nodes[n].hi == nilNode {
				child := t.newNode(c)
				t.nodes[n].hi = child
			}
			n = t.nodes[n].hi
		default:
			i++
			if i == len(key) {
				if e := t.nodes[n].entry; e != noEntry {
					t.entries[e].Value = value
					return nil
				}
				t.nodes[n].entry = int32(len(t.entries))
				t.entries = append(t.entries, Entry{Key: key, Value: value})
				return nil
			}
			if t.nodes[n].eq == nilNode {
				child := t.newNode(key[i])
				t.nodes[n].eq = child
			}
			n = t.nodes[n].eq
		}
	}
}

// Get returns the value stored under exactly key.
func (t *Tree) Get(key string) (string, bool) {
	n := t.find(key)
	if n == nilNode || t.nodes[n].entry == noEntry {
		return "", false
	}
	return t.entries[t.nodes[n].entry].Value, true
}

// Len returns the number of stored keys.
func (t *Tree) Len() int {
	return len(t.entries)
}

// Nodes returns the number of allocated tree nodes.
func (t *Tree) Nodes() int {
	return len(t.nodes) - 1
}

// find returns the node whose path spells key, or nilNode.
func (t *Tree) find(key string) int32 {
	if key == "" {
		return nilNode
	}
	n := t.root
	i := 0
	for n != nilNode {
		c := key[i]
		switch {
		case c < t.nodes[n].ch:
			n = t.nodes[n].lo
		case c > t.nodes[n].ch:
			n = t.nodes[n].hi
		default:
			i++
			if i == len(key) {
				return n
			}
			n = t.nodes[n].eq
		}
	}
	return nilNode
}

// sibling searches the lo/hi tree rooted at n for the node holding c.
func (t *Tree) sibling(n int32, c byte) int32 {
	for n != nilNode {
		switch {
		case c < t.nodes[n].ch:
			n = t.nodes[n].lo
		case c > t.nodes[n].ch:
			n = t.nodes[n].hi
		default:
			return n
		}
	}
	return nilNode
}

// eachSibling visits, in character order, every node of the lo/hi tree rooted at n.
func (t *Tree) eachSibling(n int32, fn func(int32)) {
	if n == nilNode {
		return
	}
	t.eachSibling(t.nodes[n].lo, fn)
	fn(n)
	t.eachSibling(t.nodes[n].hi, fn)
}

// eachEntry visits, in key order, the entry slot of every key below n.
func (t *Tree) eachEntry(n int32, fn func(int32)) {
	if n == nilNode {
		return
	}
	nd := t.nodes[n]
	t.eachEntry(nd.lo, fn)
	if nd.entry != noEntry {
		fn(nd.entry)
	}
	t.eachEntry(nd.eq, fn)
	t.eachEntry(nd.hi, fn)
}

// collect appends every entry below n in key order.
func (t *Tree) collect(n int32, out []Entry) []Entry {
	t.eachEntry(n, func(e int32) {
		out = append(out, t.entries[e])
	})
	return out
}

// PrefixMatch returns every entry whose key starts with prefix. An empty
// prefix returns the whole tree.
func (t *Tree) PrefixMatch(prefix string) []Entry {
	if prefix == "" {
		return t.collect(t.root, nil)
	}
	n := t.find(prefix)
	if n == nilNode {
		return nil
	}
	var out []Entry
	if e := t.nodes[n].entry; e != noEntry {
		out = append(out, t.entries[e])
	}
	return t.collect(t.nodes[n].eq, out)
}

// WildcardMatch returns every entry whose key matches pattern, where '?'
// stands for exactly one character and '*' for any run of characters,
// including none. See ParsePattern.
func (t *Tree) WildcardMatch(pattern string) []Entry {
	return t.Match(ParsePattern(pattern))
}

// SubstringMatch returns every entry whose key contains literal. Characters
// of literal are never interpreted as wildcards.
//
// The cost is bounded by the number of tree nodes times the pattern length;
// this is the known ceiling of the index and callers should reserve it for
// fallback queries.
func (t *Tree) SubstringMatch(literal string) []Entry {
	return t.Match(Pattern{}.Star().Literal(literal).Star())
}

// Match returns every entry whose key matches p.
func (t *Tree) Match(p Pattern) []Entry {
	if len(p) == 0 || t.root == nilNode {
		return nil
	}
	m := newMatcher(t, p)
	m.walk(t.root, 0)
	slices.SortFunc(m.out, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})
	return m.out
}

// CloseMatch returns every entry whose key is within maxDist single-character
// insertions, deletions or substitutions of key.
func (t *Tree) CloseMatch(key string, maxDist int) []Entry {
	if maxDist < 0 {
		return nil
	}
	row := make([]int, len(key)+1)
	for i := range row {
		row[i] = i
	}
	return t.closeWalk(t.root, key, row, maxDist, nil)
}

// closeWalk extends the Levenshtein row prev, computed for the path above the
// sibling tree rooted at n, by one character per visited node. Subtrees whose
// row minimum already exceeds maxDist are pruned.
func (t *Tree) closeWalk(n int32, key string, prev []int, maxDist int, out []Entry) []Entry {
	if n == nilNode {
		return out
	}
	nd := t.nodes[n]
	out = t.closeWalk(nd.lo, key, prev, maxDist, out)

	row := make([]int, len(prev))
	row[0] = prev[0] + 1
	rowMin := row[0]
	for i := 1; i < len(row); i++ {
		substitute := prev[i-1]
		if key[i-1] != nd.ch {
			substitute++
		}
		row[i] = min(substitute, prev[i]+1, row[i-1]+1)
		rowMin = min(rowMin, row[i])
	}

	if nd.entry != noEntry && row[len(row)-1] <= maxDist {
		out = append(out, t.entries[nd.entry])
	}
	if rowMin <= maxDist {
		out = t.closeWalk(nd.eq, key, row, maxDist, out)
	}
	return t.closeWalk(nd.hi, key, prev, maxDist, out)
}
