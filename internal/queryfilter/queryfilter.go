// Package queryfilter builds parameterized SQL metadata-filter conditions
// from a whitelist of fields, hardened against injection (spec §4.8).
package queryfilter

import (
	"fmt"
	"strings"

	"github.com/hendrikreh/chessmate/internal/openings"
)

// Filter is a single requested (field, value) pair, e.g. from C3's
// FiltersForText output or a direct API query parameter.
type Filter struct {
	Field string
	Value string
}

// RatingFilter adds optional rating-based clauses (spec §4.8).
type RatingFilter struct {
	WhiteMin        *int
	BlackMin        *int
	MaxRatingDelta  *int
}

type fieldSpec struct {
	condition func(placeholder string) string
	transform func(string) string
}

var whitelist = map[string]fieldSpec{
	"opening": {
		condition: func(p string) string { return fmt.Sprintf("LOWER(g.opening_slug) LIKE %s || '%%'", p) },
		transform: openings.Slugify,
	},
	"white": {
		condition: func(p string) string { return fmt.Sprintf("LOWER(w.name) LIKE '%%' || %s || '%%'", p) },
		transform: lowerTrim,
	},
	"black": {
		condition: func(p string) string { return fmt.Sprintf("LOWER(b.name) LIKE '%%' || %s || '%%'", p) },
		transform: lowerTrim,
	},
	"event": {
		condition: func(p string) string { return fmt.Sprintf("LOWER(g.event) LIKE '%%' || %s || '%%'", p) },
		transform: lowerTrim,
	},
	"eco": {
		condition: func(p string) string { return fmt.Sprintf("g.eco_code = %s", p) },
		transform: upperTrim,
	},
}

func lowerTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
func upperTrim(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// Build constructs parameterized SQL conditions for filters and rating,
// using positional placeholders starting at startIndex (spec §4.8).
// Unknown fields are dropped silently and contribute no parameter. Values
// are transformed (lowercased/uppercased/slugified as appropriate) before
// binding; they are never concatenated into the SQL text.
func Build(filters []Filter, rating RatingFilter, startIndex int) (conditions []string, params []any, nextIndex int) {
	idx := startIndex
	for _, f := range filters {
		spec, ok := whitelist[strings.ToLower(f.Field)]
		if !ok {
			continue
		}
		placeholder := fmt.Sprintf("$%d", idx)
		conditions = append(conditions, spec.condition(placeholder))
		params = append(params, spec.transform(f.Value))
		idx++
	}

	if rating.WhiteMin != nil {
		conditions = append(conditions, fmt.Sprintf("w.rating >= $%d", idx))
		params = append(params, *rating.WhiteMin)
		idx++
	}
	if rating.BlackMin != nil {
		conditions = append(conditions, fmt.Sprintf("b.rating >= $%d", idx))
		params = append(params, *rating.BlackMin)
		idx++
	}
	if rating.MaxRatingDelta != nil {
		conditions = append(conditions, fmt.Sprintf("ABS(w.rating - b.rating) <= $%d", idx))
		params = append(params, *rating.MaxRatingDelta)
		idx++
	}

	return conditions, params, idx
}
