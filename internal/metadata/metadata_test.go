package metadata

import (
	"testing"

	"github.com/hendrikreh/chessmate/internal/pgn"
)

func headersFrom(pairs map[string]string, order []string) *pgn.Headers {
	games, err := pgn.ParseAll(buildPGN(pairs, order))
	if err != nil {
		panic(err)
	}
	return games[0].Headers
}

func buildPGN(pairs map[string]string, order []string) string {
	out := ""
	for _, k := range order {
		out += "[" + k + " \"" + pairs[k] + "\"]\n"
	}
	out += "\n1. e4 e5 *\n"
	return out
}

func TestExtractPrefersHeaderOpening(t *testing.T) {
	order := []string{"Event", "Result", "ECO", "Opening", "White", "Black"}
	pairs := map[string]string{
		"Event": "Test", "Result": "*", "ECO": "B90",
		"Opening": "Sicilian, Najdorf Variation", "White": "Alice", "Black": "Bob",
	}
	md := Extract(headersFrom(pairs, order))
	if md.OpeningName != "Sicilian, Najdorf Variation" {
		t.Errorf("OpeningName = %q, want header value", md.OpeningName)
	}
	if md.OpeningSlug != "sicilian_najdorf_variation" {
		t.Errorf("OpeningSlug = %q", md.OpeningSlug)
	}
}

func TestExtractFallsBackToECO(t *testing.T) {
	order := []string{"Event", "Result", "ECO"}
	pairs := map[string]string{"Event": "Test", "Result": "*", "ECO": "B90"}
	md := Extract(headersFrom(pairs, order))
	if md.OpeningName != "Sicilian Defense" {
		t.Errorf("OpeningName = %q, want ECO-derived fallback", md.OpeningName)
	}
}

func TestNormalizeDateUnknownYear(t *testing.T) {
	if got := normalizeDate("????.05.12"); got != "" {
		t.Errorf("normalizeDate with unknown year = %q, want empty", got)
	}
}

func TestNormalizeDateUnknownMonthDay(t *testing.T) {
	if got := normalizeDate("2024.??.??"); got != "2024-01-01" {
		t.Errorf("normalizeDate = %q, want 2024-01-01", got)
	}
}

func TestNormalizeDateWellFormed(t *testing.T) {
	if got := normalizeDate("2024.05.12"); got != "2024-05-12" {
		t.Errorf("normalizeDate = %q, want 2024-05-12", got)
	}
}

func TestExtractPlayerRating(t *testing.T) {
	order := []string{"Event", "Result", "White", "WhiteElo", "Black"}
	pairs := map[string]string{"Event": "T", "Result": "*", "White": "Alice", "WhiteElo": "2400", "Black": "Bob"}
	md := Extract(headersFrom(pairs, order))
	if md.White.Rating == nil || *md.White.Rating != 2400 {
		t.Errorf("White.Rating = %v, want 2400", md.White.Rating)
	}
}
