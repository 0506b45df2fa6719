package openings

import "testing"

func TestSlugifyStability(t *testing.T) {
	cases := []string{"Sicilian Defense", "Queen's Gambit Declined", "King's Indian--Fianchetto", "  leading  "}
	for _, c := range cases {
		once := Slugify(c)
		twice := Slugify(once)
		if once != twice {
			t.Errorf("Slugify(%q) = %q, Slugify(that) = %q", c, once, twice)
		}
		for _, r := range once {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
			if !ok {
				t.Errorf("Slugify(%q) produced disallowed rune %q", c, r)
			}
		}
	}
}

func TestCanonicalNameOfECO(t *testing.T) {
	name, ok := CanonicalNameOfECO("b90")
	if !ok {
		t.Fatal("expected a match for B90")
	}
	if name != "Sicilian Defense" {
		t.Errorf("CanonicalNameOfECO(b90) = %q, want Sicilian Defense", name)
	}
}

func TestCanonicalNameOfECONoMatch(t *testing.T) {
	if _, ok := CanonicalNameOfECO("Z99"); ok {
		t.Error("expected no match for out-of-range ECO code")
	}
}

func TestFiltersForTextDeduplicatesAndSorts(t *testing.T) {
	filters := FiltersForText("exploring the sicilian najdorf variation")
	if len(filters) == 0 {
		t.Fatal("expected at least one filter")
	}
	for i := 1; i < len(filters); i++ {
		a, b := filters[i-1], filters[i]
		if a.Field > b.Field || (a.Field == b.Field && a.Value > b.Value) {
			t.Errorf("filters not sorted: %+v then %+v", a, b)
		}
	}
	seen := map[Filter]bool{}
	for _, f := range filters {
		if seen[f] {
			t.Errorf("duplicate filter %+v", f)
		}
		seen[f] = true
	}
}
