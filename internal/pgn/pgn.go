// Package pgn tokenizes and parses Portable Game Notation text: tag pairs,
// movetext stripped of comments/NAGs/variations/move numbers, and the
// resulting SAN token stream. See spec §4.2.
package pgn

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// Headers is an ordered tag-name -> value mapping, preserving the order in
// which tags first appeared in the source text.
type Headers struct {
	order  []string
	values map[string]string
}

func newHeaders() *Headers {
	return &Headers{values: map[string]string{}}
}

// Set records a tag, appending to the order slice only on first sight.
func (h *Headers) Set(key, value string) {
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = value
}

// Get returns the tag's value and whether it was present.
func (h *Headers) Get(key string) (string, bool) {
	v, ok := h.values[key]
	return v, ok
}

// Keys returns tag names in encounter order.
func (h *Headers) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// Move is a single SAN token with its ply/turn position.
type Move struct {
	SAN  string
	Turn int
	Ply  int
}

// Game is the parsed result of one PGN game: its header block and the
// flattened mainline SAN token sequence (spec §3 — RAVs/variations are
// stripped, not retained, per §4.2).
type Game struct {
	Headers *Headers
	Moves   []Move
}

// GameResult pairs a parsed Game with its 1-based index and raw source
// text, the shape folded/streamed callers receive (spec §4.2).
type GameResult struct {
	Index int
	Raw   string
	Game  *Game
}

var (
	tagLineRe    = regexp.MustCompile(`^\s*\[\s*([A-Za-z0-9_]+)\s+"((?:[^"\\]|\\.)*)"\s*\]\s*$`)
	nagRe        = regexp.MustCompile(`\$\d+`)
	moveNumberRe = regexp.MustCompile(`\d+\.(\.\.)?`)
	resultTokens = map[string]bool{"1-0": true, "0-1": true, "1/2-1/2": true, "*": true}
)

// ParseAll splits text into games on blank-line boundaries between a
// trailing tag block's Result-bearing section and the next [Event tag,
// robust to CRLF, and parses each one.
func ParseAll(text string) ([]*Game, error) {
	var games []*Game
	err := FoldGames(text, nil, func(gr GameResult) error {
		games = append(games, gr.Game)
		return nil
	})
	return games, err
}

// FoldGames iterates games lazily in the supplied text, invoking f for
// each successfully parsed game. If a game fails to parse, onError is
// invoked with the 1-based index and the error; if onError returns false
// (or is nil), FoldGames aborts and returns the error. Otherwise it
// continues with sibling games (spec §4.2 — per-game failure must not
// poison siblings).
func FoldGames(text string, onError func(index int, err error) bool, f func(GameResult) error) error {
	blocks := splitGames(text)
	for i, raw := range blocks {
		index := i + 1
		game, err := parseOne(raw)
		if err != nil {
			wrapped := errs.PgnParse(err.Error(), index)
			if onError == nil || !onError(index, wrapped) {
				return wrapped
			}
			continue
		}
		if ferr := f(GameResult{Index: index, Raw: raw, Game: game}); ferr != nil {
			return ferr
		}
	}
	return nil
}

// StreamGames is the cooperative variant of FoldGames: it parses and sends
// one game at a time on the returned channel, so a consumer (e.g. an HTTP
// handler) can interleave other I/O between games (spec §4.2/§5). The
// channels are closed when iteration completes; at most one of the two
// channels ever receives a value per game.
func StreamGames(text string) (<-chan GameResult, <-chan error) {
	results := make(chan GameResult)
	errsCh := make(chan error, 1)

	go func() {
		defer close(results)
		defer close(errsCh)
		blocks := splitGames(text)
		for i, raw := range blocks {
			index := i + 1
			game, err := parseOne(raw)
			if err != nil {
				errsCh <- errs.PgnParse(err.Error(), index)
				continue
			}
			results <- GameResult{Index: index, Raw: raw, Game: game}
		}
	}()

	return results, errsCh
}

// splitGames breaks raw multi-game PGN text into per-game substrings. A
// new game begins at a line starting with "[Event " that is not the very
// first tag block; blank lines between blocks are tolerated and CRLF is
// normalized to LF first.
func splitGames(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var blocks []string
	var current []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[Event ") && len(current) > 0 && hasMovetext(current) {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 && strings.TrimSpace(strings.Join(current, "")) != "" {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}

// hasMovetext reports whether the accumulated lines already contain a
// non-tag, non-blank line, which means the current block has moved past
// its header section and a following "[Event " line starts a new game.
func hasMovetext(lines []string) bool {
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "[") {
			return true
		}
	}
	return false
}

func parseOne(raw string) (*Game, error) {
	headers := newHeaders()
	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var movetextLines []string
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := tagLineRe.FindStringSubmatch(trimmed); m != nil {
			key := m[1]
			value := strings.ReplaceAll(m[2], `\"`, `"`)
			value = strings.ReplaceAll(value, `\\`, `\`)
			headers.Set(key, value)
			continue
		}
		movetextLines = append(movetextLines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning game text: %w", err)
	}

	moves, err := tokenizeMovetext(strings.Join(movetextLines, "\n"))
	if err != nil {
		return nil, err
	}

	return &Game{Headers: headers, Moves: moves}, nil
}

// tokenizeMovetext strips block comments, semicolon comments, nested
// variations, NAGs, and move-number indicators, then assigns ply/turn to
// each remaining SAN token, stopping at the first result token (spec
// §4.2).
func tokenizeMovetext(text string) ([]Move, error) {
	stripped, err := stripCommentsAndVariations(text)
	if err != nil {
		return nil, err
	}
	stripped = nagRe.ReplaceAllString(stripped, " ")
	stripped = moveNumberRe.ReplaceAllString(stripped, " ")

	var moves []Move
	ply := 0
	for _, tok := range strings.Fields(stripped) {
		if resultTokens[tok] {
			break
		}
		san := strings.TrimRight(tok, "+#")
		if san == "" {
			continue
		}
		ply++
		moves = append(moves, Move{
			SAN:  san,
			Ply:  ply,
			Turn: (ply + 1) / 2,
		})
	}
	return moves, nil
}

// stripCommentsAndVariations removes "{ ... }" comments, ";"-to-EOL
// comments, and balanced, possibly nested "( ... )" variations.
func stripCommentsAndVariations(text string) (string, error) {
	var out strings.Builder
	depth := 0
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == '{':
			end := strings.IndexByte(text[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated comment starting at byte %d", i)
			}
			i += end + 1
		case c == ';' && depth == 0:
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				i = len(text)
			} else {
				i += end + 1
			}
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth == 0 {
				return "", fmt.Errorf("unbalanced ')' at byte %d", i)
			}
			depth--
			i++
		default:
			if depth == 0 {
				out.WriteByte(c)
			}
			i++
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("unbalanced '(' in movetext")
	}
	return out.String(), nil
}

// NumberOfSANTokens is a convenience for the ply-count law test (spec §8):
// len(fens) == number of SAN tokens.
func NumberOfSANTokens(g *Game) int {
	return len(g.Moves)
}

// ParsePositiveTurn validates and returns n as used by FenAfterMove's
// caller contract ("n <= 0" is an error, spec §4.4).
func ParsePositiveTurn(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("turn number must be positive, got %q", s)
	}
	return n, nil
}
