package index

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTree builds a tree from key -> value pairs.
func newTestTree(t *testing.T, pairs map[string]string) *Tree {
	t.Helper()
	tree := New()
	for k, v := range pairs {
		require.NoError(t, tree.Insert(k, v))
	}
	return tree
}

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

var phones = map[string]string{
	"+015551234567": "A",
	"+015551234568": "B",
	"+016241512187": "C",
	"+015746245722": "D",
	"+012121624188": "E",
	"+4624418210":   "F",
	"+01555":        "G",
}

func TestInsertAndGet(t *testing.T) {
	tree := newTestTree(t, phones)

	assert.Equal(t, len(phones), tree.Len())
	for k, v := range phones {
		got, ok := tree.Get(k)
		assert.True(t, ok, k)
		assert.Equal(t, v, got, k)
	}

	_, ok := tree.Get("+0155512345")
	assert.False(t, ok, "interior node must not report a value")
	_, ok = tree.Get("+99")
	assert.False(t, ok)
	_, ok = tree.Get("")
	assert.False(t, ok)
}

func TestInsertEmptyKey(t *testing.T) {
	tree := New()
	assert.ErrorIs(t, tree.Insert("", "x"), ErrEmptyKey)
	assert.Equal(t, 0, tree.Len())
}

func TestInsertLastWriteWins(t *testing.T) {
	tree := New()
	require.NoError(t, tree.Insert("+015551234567", "first"))
	require.NoError(t, tree.Insert("+015551234567", "second"))

	assert.Equal(t, 1, tree.Len())
	got, ok := tree.Get("+015551234567")
	require.True(t, ok)
	assert.Equal(t, "second", got)
	assert.Equal(t, []Entry{{Key: "+015551234567", Value: "second"}}, tree.PrefixMatch("+015551234567"))
}

func TestPrefixMatch(t *testing.T) {
	tree := newTestTree(t, phones)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"full key round trip", "+015551234567", []string{"+015551234567"}},
		{"shared prefix", "+0155512345", []string{"+015551234567", "+015551234568"}},
		{"short key before its extensions", "+01555", []string{"+01555", "+015551234567", "+015551234568"}},
		{"international", "+46", []string{"+4624418210"}},
		{"no match", "+0199", nil},
		{"longer than any key", "+0155512345670", nil},
		{"empty prefix returns all", "", []string{
			"+012121624188", "+01555", "+015551234567", "+015551234568",
			"+015746245722", "+016241512187", "+4624418210",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.PrefixMatch(tt.prefix)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestPrefixMatchCarriesValues(t *testing.T) {
	tree := newTestTree(t, phones)
	for _, e := range tree.PrefixMatch("+01") {
		assert.Equal(t, phones[e.Key], e.Value, e.Key)
	}
}

func TestWildcardMatch(t *testing.T) {
	tree := newTestTree(t, phones)

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"area code skipped", "+01???624*", []string{"+015746245722"}},
		{"country code skipped", "+??624*", []string{"+016241512187"}},
		{"country code skipped domestic", "+??5551234567*", []string{"+015551234567"}},
		{"trailing star matches empty rest", "+01555*", []string{"+01555", "+015551234567", "+015551234568"}},
		{"exact literal", "+01555", []string{"+01555"}},
		{"single wildcard at end", "+01555123456?", []string{"+015551234567", "+015551234568"}},
		{"leading star", "*4567", []string{"+015551234567"}},
		{"substring star", "*624*", []string{"+012121624188", "+015746245722", "+016241512187", "+4624418210"}},
		{"all", "*", []string{
			"+012121624188", "+01555", "+015551234567", "+015551234568",
			"+015746245722", "+016241512187", "+4624418210",
		}},
		{"fixed width too long", "+01????????????*", nil},
		{"plus never appears after start", "???+01*", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.WildcardMatch(tt.pattern)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

func TestSubstringMatch(t *testing.T) {
	tree := newTestTree(t, phones)

	assert.Equal(t,
		[]string{"+012121624188", "+015746245722", "+016241512187", "+4624418210"},
		keys(tree.SubstringMatch("624")))
	assert.Equal(t, []string{"+015551234568"}, keys(tree.SubstringMatch("4568")))
	assert.Empty(t, tree.SubstringMatch("999"))
	assert.Len(t, tree.SubstringMatch(""), len(phones))
}

func TestSubstringMatchLiteralIsNotAWildcard(t *testing.T) {
	tree := newTestTree(t, map[string]string{"a*c": "1", "abc": "2", "a?c": "3"})

	assert.Equal(t, []string{"a*c"}, keys(tree.SubstringMatch("*")))
	assert.Equal(t, []string{"a?c"}, keys(tree.Match(Pattern{}.Literal("a?c"))))
	assert.Equal(t, []string{"a*c", "a?c", "abc"}, keys(tree.WildcardMatch("a?c")))
}

func TestCloseMatch(t *testing.T) {
	tree := newTestTree(t, phones)

	tests := []struct {
		name    string
		key     string
		maxDist int
		want    []string
	}{
		{"exact", "+015551234567", 0, []string{"+015551234567"}},
		{"one substitution", "+015551234567", 1, []string{"+015551234567", "+015551234568"}},
		{"one deletion", "+01555123456", 1, []string{"+015551234567", "+015551234568"}},
		{"one insertion", "+0155512345678", 1, []string{"+015551234567", "+015551234568"}},
		{"transposition costs two", "+015551234576", 1, nil},
		{"transposition within two", "+015551234576", 2, []string{"+015551234567", "+015551234568"}},
		{"negative distance", "+015551234567", -1, nil},
		{"nothing close", "+449999999999", 2, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tree.CloseMatch(tt.key, tt.maxDist)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, keys(got))
		})
	}
}

// levenshtein is the textbook distance used to cross-check CloseMatch.
func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := make([]int, len(b)+1)
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(b)]
}

func TestCloseMatchAgreesWithBruteForce(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < 300; i++ {
		pairs[fmt.Sprintf("+01%010d", (i*7919)%10000000000)] = fmt.Sprint(i)
	}
	tree := newTestTree(t, pairs)

	for _, query := range []string{"+010000079190", "+01000015838", "+0100002375", "+010000000000"} {
		for dist := 0; dist <= 3; dist++ {
			var want []string
			for k := range pairs {
				if levenshtein(k, query) <= dist {
					want = append(want, k)
				}
			}
			sort.Strings(want)
			got := keys(tree.CloseMatch(query, dist))
			if len(want) == 0 {
				assert.Empty(t, got, "%s/%d", query, dist)
				continue
			}
			assert.Equal(t, want, got, "%s/%d", query, dist)
		}
	}
}

func TestQueriesReturnSortedKeys(t *testing.T) {
	pairs := make(map[string]string)
	for i := 0; i < 500; i++ {
		pairs[fmt.Sprintf("+%d", 1000000+i*37)] = fmt.Sprint(i)
	}
	tree := newTestTree(t, pairs)

	for name, got := range map[string][]Entry{
		"prefix":    tree.PrefixMatch("+10"),
		"wildcard":  tree.WildcardMatch("+??1*"),
		"substring": tree.SubstringMatch("11"),
		"close":     tree.CloseMatch("+1001110", 2),
	} {
		ks := keys(got)
		assert.NotEmpty(t, ks, name)
		assert.True(t, sort.StringsAreSorted(ks), name)
		for i := 1; i < len(ks); i++ {
			assert.NotEqual(t, ks[i-1], ks[i], "%s returned a duplicate", name)
		}
	}
}

func TestEmptyTree(t *testing.T) {
	tree := New()
	assert.Empty(t, tree.PrefixMatch(""))
	assert.Empty(t, tree.WildcardMatch("*"))
	assert.Empty(t, tree.SubstringMatch("1"))
	assert.Empty(t, tree.CloseMatch("+01", 3))
	assert.Equal(t, 0, tree.Nodes())
}

func TestPatternString(t *testing.T) {
	p := Pattern{}.Literal("+01").Any(3).Literal("624").Star().Star()
	assert.Equal(t, "+01???624*", p.String())
	assert.Equal(t, p, ParsePattern("+01???624**"))
	assert.True(t, strings.HasSuffix(Pattern{}.Star().Literal("1").Star().String(), "1*"))
}
