// Package openings provides the static ECO-range catalogue used to derive
// a canonical opening name from an ECO code, slugify names, and infer
// metadata filters from free text (spec §3/§4.3).
package openings

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed openings.yaml
var catalogueYAML []byte

// Entry is one ECO-range -> canonical-name row.
type Entry struct {
	ECOStart  string   `yaml:"eco_start"`
	ECOEnd    string   `yaml:"eco_end"`
	Canonical string   `yaml:"canonical"`
	Synonyms  []string `yaml:"synonyms"`
	slug      string
}

var entries []Entry

func init() {
	var raw []Entry
	if err := yaml.Unmarshal(catalogueYAML, &raw); err != nil {
		panic("openings: embedded catalogue failed to parse: " + err.Error())
	}
	for i := range raw {
		raw[i].ECOStart = strings.ToUpper(raw[i].ECOStart)
		raw[i].ECOEnd = strings.ToUpper(raw[i].ECOEnd)
		raw[i].slug = Slugify(raw[i].Canonical)
	}
	sort.Slice(raw, func(i, j int) bool { return raw[i].ECOStart < raw[j].ECOStart })
	entries = raw
}

var nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name, drops apostrophes, collapses any run of
// non-alphanumeric characters into a single underscore, and trims leading
// and trailing underscores (spec §4.3). It is stable under repeated
// application (spec §8).
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "'", "")
	s = nonAlnumRun.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// CanonicalNameOfECO returns the canonical name of the first catalogue
// entry whose range contains e (uppercased and trimmed first), or ("",
// false) if no entry matches (spec §4.3).
func CanonicalNameOfECO(e string) (string, bool) {
	e = strings.ToUpper(strings.TrimSpace(e))
	for _, entry := range entries {
		if entry.ECOStart <= e && e <= entry.ECOEnd {
			return entry.Canonical, true
		}
	}
	return "", false
}

// Filter is a single (field, value) metadata filter pair, as emitted by
// FiltersForText and consumed by the query filter builder (C8).
type Filter struct {
	Field string
	Value string
}

// FiltersForText scans cleaned (already lowercased, punctuation-stripped)
// text for opening synonyms and emits an ("opening", slug) and
// ("eco_range", range) filter pair per match, deduplicated and sorted by
// (field, value) (spec §4.3).
func FiltersForText(cleaned string) []Filter {
	seen := map[Filter]bool{}
	var out []Filter
	for _, entry := range entries {
		for _, syn := range entry.Synonyms {
			if strings.Contains(cleaned, syn) {
				ecoRange := entry.ECOStart
				if entry.ECOStart != entry.ECOEnd {
					ecoRange = entry.ECOStart + "-" + entry.ECOEnd
				}
				candidates := []Filter{
					{Field: "opening", Value: entry.slug},
					{Field: "eco_range", Value: ecoRange},
				}
				for _, c := range candidates {
					if !seen[c] {
						seen[c] = true
						out = append(out, c)
					}
				}
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Value < out[j].Value
	})
	return out
}
