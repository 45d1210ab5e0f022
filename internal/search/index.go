// Package search implements incremental school search and the keyboard
// driven result list.
package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/joeblew999/plat-schoolmap/internal/district"
)

const (
	// MinQuery is the shortest query that produces results.
	MinQuery = 2
	// MinAddressQuery is the shortest query offered as an address lookup.
	MinAddressQuery = 3
	// MaxSchools caps the school matches shown.
	MaxSchools = 10
)

// Kind tags a Result.
type Kind int

const (
	KindSchool Kind = iota
	KindAddress
)

func (k Kind) String() string {
	if k == KindAddress {
		return "address"
	}
	return "school"
}

// Result is either a school or a request to geocode the query.
type Result struct {
	Kind   Kind
	School *district.School
	Query  string
}

// Label is the text of the result row.
func (r Result) Label() string {
	if r.Kind == KindAddress {
		return "Search address: " + r.Query
	}
	return r.School.Name
}

// Badge is the short type marker shown on school rows.
func (r Result) Badge() string {
	if r.Kind == KindAddress {
		return ""
	}
	return r.School.Type.Label()
}

type entry struct {
	lower  string
	school *district.School
}

// Index answers substring queries over school names. It is built once and
// never mutated, so it is safe to share.
type Index struct {
	entries []entry
}

// NewIndex indexes the name -> school mapping. Entries are stored in English
// collation order so matches come out sorted.
func NewIndex(names map[string]*district.School) *Index {
	keys := make([]string, 0, len(names))
	for name := range names {
		keys = append(keys, name)
	}
	col := collate.New(language.English)
	sort.SliceStable(keys, func(i, j int) bool {
		if c := col.CompareString(keys[i], keys[j]); c != 0 {
			return c < 0
		}
		return keys[i] < keys[j]
	})

	ix := &Index{entries: make([]entry, len(keys))}
	for i, k := range keys {
		ix.entries[i] = entry{lower: strings.ToLower(k), school: names[k]}
	}
	return ix
}

// Len returns the number of indexed names.
func (ix *Index) Len() int { return len(ix.entries) }

// Match returns up to MaxSchools schools whose name contains the query, case
// insensitively and in name order. Queries of MinAddressQuery characters or
// more also get a trailing address entry. Queries shorter than MinQuery
// return nothing.
func (ix *Index) Match(query string) []Result {
	q := strings.TrimSpace(query)
	n := utf8.RuneCountInString(q)
	if n < MinQuery {
		return nil
	}
	lower := strings.ToLower(q)

	var out []Result
	for _, e := range ix.entries {
		if len(out) == MaxSchools {
			break
		}
		if strings.Contains(e.lower, lower) {
			out = append(out, Result{Kind: KindSchool, School: e.school})
		}
	}
	if n >= MinAddressQuery {
		out = append(out, Result{Kind: KindAddress, Query: q})
	}
	return out
}
