// Package metadata extracts and normalizes GameMetadata from PGN headers
// (spec §3/§4.5).
package metadata

import (
	"strconv"
	"strings"

	"github.com/hendrikreh/chessmate/internal/openings"
	"github.com/hendrikreh/chessmate/internal/pgn"
)

// Player is a white/black participant as recorded in headers.
type Player struct {
	Name   string
	FideID string
	Rating *int
}

// GameMetadata is the normalized header-derived record (spec §3).
type GameMetadata struct {
	Event        string
	Site         string
	Date         string // YYYY-MM-DD, empty if year unknown
	Round        string
	White        Player
	Black        Player
	ECOCode      string
	OpeningName  string
	OpeningSlug  string
	Result       string
}

// Extract reads headers case-sensitively by tag name and normalizes them
// into a GameMetadata record (spec §4.5).
func Extract(headers *pgn.Headers) GameMetadata {
	get := func(key string) string {
		v, _ := headers.Get(key)
		return v
	}

	md := GameMetadata{
		Event:   get("Event"),
		Site:    get("Site"),
		Round:   get("Round"),
		ECOCode: strings.ToUpper(strings.TrimSpace(get("ECO"))),
		Result:  get("Result"),
		White:   extractPlayer(headers, "White", "WhiteFideId", "WhiteElo"),
		Black:   extractPlayer(headers, "Black", "BlackFideId", "BlackElo"),
	}
	md.Date = normalizeDate(get("Date"))

	if opening := get("Opening"); opening != "" {
		md.OpeningName = opening
	} else if name, ok := openings.CanonicalNameOfECO(md.ECOCode); ok {
		md.OpeningName = name
	}

	switch {
	case md.OpeningName != "":
		md.OpeningSlug = openings.Slugify(md.OpeningName)
	case md.ECOCode != "":
		md.OpeningSlug = openings.Slugify(md.ECOCode)
	}

	return md
}

func extractPlayer(headers *pgn.Headers, nameKey, fideKey, eloKey string) Player {
	name, _ := headers.Get(nameKey)
	fide, _ := headers.Get(fideKey)
	p := Player{Name: name, FideID: fide}
	if eloStr, ok := headers.Get(eloKey); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(eloStr)); err == nil {
			p.Rating = &n
		}
	}
	return p
}

// normalizeDate splits a PGN date ("YYYY.MM.DD") on '.', discards it
// entirely if the year contains '?', and replaces '?'-runs in month/day
// with "01" (spec §4.5).
func normalizeDate(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 3 {
		return ""
	}
	year, month, day := parts[0], parts[1], parts[2]
	if strings.Contains(year, "?") || year == "" {
		return ""
	}
	if strings.Contains(month, "?") || month == "" {
		month = "01"
	}
	if strings.Contains(day, "?") || day == "" {
		day = "01"
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "-" + month + "-" + day
}
