package phonecomplete

import (
	"github.com/remiges-tech/phonecomplete/index"
)

// Match is a single completion: a canonical phone key and the identifier of
// the record it was indexed from.
type Match struct {
	// Key is the canonical phone number, "+" followed by digits.
	Key string `json:"key"`

	// RecordID is the source record identifier as stored at build time.
	RecordID string `json:"record_id"`
}

// Strategy names, used as metric labels.
const (
	strategyPrefix             = "prefix"
	strategyCloseMatch         = "close_match"
	strategyAreaCodeOmitted    = "area_code_omitted"
	strategyCountryCodeOmitted = "country_code_omitted"
	strategySubstring          = "substring"
	strategyIntlPrefix         = "intl_prefix"
	strategyIntlCountryCode    = "intl_country_code"
	strategyIntlSubstring      = "intl_substring"
)

// strategy is one index query of the plan together with its quota.
type strategy struct {
	name  string
	quota int
	run   func(t *index.Tree) []index.Entry
}

// planner derives the ordered query strategies for a cleaned search string
// and merges their results.
type planner struct {
	opts Options
}

func newPlanner(opts Options) *planner {
	return &planner{opts: opts}
}

// strategies returns the plan for cleaned, most specific first. Queries
// starting with "+" are treated as international, anything else as domestic.
func (p *planner) strategies(cleaned string) []strategy {
	o := p.opts
	q := o.Quotas

	if cleaned[0] != '+' {
		full := o.DomesticPrefix + cleaned
		return []strategy{
			{strategyPrefix, q.Prefix, func(t *index.Tree) []index.Entry {
				return t.PrefixMatch(full)
			}},
			{strategyCloseMatch, q.CloseMatch, func(t *index.Tree) []index.Entry {
				if len(cleaned) < o.CloseMatchMinLength {
					return nil
				}
				return t.CloseMatch(full, o.CloseMatchBudget-len(cleaned))
			}},
			{strategyAreaCodeOmitted, q.AreaCodeOmitted, func(t *index.Tree) []index.Entry {
				return t.Match(index.Pattern{}.Literal(o.DomesticPrefix).Any(o.AreaCodeWidth).Literal(cleaned).Star())
			}},
			{strategyCountryCodeOmitted, q.CountryCodeOmitted, func(t *index.Tree) []index.Entry {
				return t.Match(index.Pattern{}.Literal("+").Any(o.CountryCodeWidth).Literal(cleaned).Star())
			}},
			{strategySubstring, q.Substring, func(t *index.Tree) []index.Entry {
				return t.SubstringMatch(cleaned)
			}},
		}
	}

	// "+" and the country code are dropped when matching with the country
	// code as a wildcard.
	skip := 1 + o.CountryCodeWidth
	rest := ""
	if len(cleaned) > skip {
		rest = cleaned[skip:]
	}
	return []strategy{
		{strategyIntlPrefix, q.IntlPrefix, func(t *index.Tree) []index.Entry {
			return t.Match(index.Pattern{}.Any(skip).Literal(cleaned).Star())
		}},
		{strategyIntlCountryCode, q.IntlCountryCode, func(t *index.Tree) []index.Entry {
			return t.Match(index.Pattern{}.Literal("+").Any(o.CountryCodeWidth).Literal(rest).Star())
		}},
		{strategyIntlSubstring, q.IntlSubstring, func(t *index.Tree) []index.Entry {
			return t.SubstringMatch(rest)
		}},
	}
}

// plan runs the strategies for cleaned against t and merges their results:
// strategies in order, at most quota entries from the head of each sorted
// result, each key once, MaxResults in total. Strategies after the cap is
// reached are not run.
func (p *planner) plan(t *index.Tree, cleaned string) []Match {
	limit := p.opts.MaxResults
	out := make([]Match, 0, limit)
	seen := make(map[string]struct{}, limit)

	for _, st := range p.strategies(cleaned) {
		if len(out) >= limit {
			break
		}
		if st.quota <= 0 {
			continue
		}

		entries := st.run(t)
		if len(entries) > st.quota {
			entries = entries[:st.quota]
		}
		added := 0
		for _, e := range entries {
			if len(out) >= limit {
				break
			}
			if _, dup := seen[e.Key]; dup {
				continue
			}
			seen[e.Key] = struct{}{}
			out = append(out, Match{Key: e.Key, RecordID: e.Value})
			added++
		}
		strategyResults.WithLabelValues(st.name).Add(float64(added))
	}

	return out
}
