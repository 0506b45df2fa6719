package pgn

import "testing"

func TestParseSingleGame(t *testing.T) {
	input := `[Event "Test Open"]
[Site "Somewhere"]
[Date "2024.01.02"]
[Round "1"]
[White "Alice"]
[Black "Bob"]
[Result "1-0"]

1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0
`
	games, err := ParseAll(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("got %d games, want 1", len(games))
	}
	g := games[0]
	if v, _ := g.Headers.Get("Event"); v != "Test Open" {
		t.Errorf("Event = %q", v)
	}
	if len(g.Moves) != 6 {
		t.Fatalf("got %d moves, want 6", len(g.Moves))
	}
	want := []string{"e4", "e5", "Nf3", "Nc6", "Bb5", "a6"}
	for i, m := range g.Moves {
		if m.SAN != want[i] {
			t.Errorf("move %d = %q, want %q", i, m.SAN, want[i])
		}
		if m.Ply != i+1 {
			t.Errorf("move %d ply = %d, want %d", i, m.Ply, i+1)
		}
	}
	if g.Moves[2].Turn != 2 {
		t.Errorf("move 2 (Nf3) turn = %d, want 2", g.Moves[2].Turn)
	}
}

func TestParseMultipleGames(t *testing.T) {
	input := `[Event "Game One"]
[Result "1-0"]

1. e4 e5 1-0

[Event "Game Two"]
[Result "0-1"]

1. d4 d5 0-1
`
	games, err := ParseAll(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if v, _ := games[0].Headers.Get("Event"); v != "Game One" {
		t.Errorf("first game Event = %q", v)
	}
	if v, _ := games[1].Headers.Get("Event"); v != "Game Two" {
		t.Errorf("second game Event = %q", v)
	}
}

func TestTokenizeStripsAnnotations(t *testing.T) {
	input := `[Event "E"]
[Result "*"]

1. e4 {a good move} e5 $1 2. Nf3 (2. f4 exf4) Nc6 *
`
	games, err := ParseAll(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	moves := games[0].Moves
	want := []string{"e4", "e5", "Nf3", "Nc6"}
	if len(moves) != len(want) {
		t.Fatalf("got %d moves %v, want %v", len(moves), sans(moves), want)
	}
	for i, m := range moves {
		if m.SAN != want[i] {
			t.Errorf("move %d = %q, want %q", i, m.SAN, want[i])
		}
	}
}

func TestTokenizeStripsCheckAndMateDecorations(t *testing.T) {
	input := `[Event "E"]
[Result "1-0"]

1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0
`
	games, err := ParseAll(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := games[0].Moves[len(games[0].Moves)-1]
	if last.SAN != "Qxf7" {
		t.Errorf("last move = %q, want Qxf7 (stripped #)", last.SAN)
	}
}

func TestFoldGamesToleratesPerGameFailure(t *testing.T) {
	input := `[Event "Bad"]
[Result "*"]

1. e4 { unterminated comment *

[Event "Good"]
[Result "1-0"]

1. e4 e5 1-0
`
	var okCount int
	var failed []int
	err := FoldGames(input, func(index int, err error) bool {
		failed = append(failed, index)
		return true
	}, func(gr GameResult) error {
		okCount++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if okCount != 1 {
		t.Errorf("okCount = %d, want 1", okCount)
	}
	if len(failed) != 1 || failed[0] != 1 {
		t.Errorf("failed game indexes = %v, want [1]", failed)
	}
}

func TestStreamGames(t *testing.T) {
	input := `[Event "Game One"]
[Result "1-0"]

1. e4 e5 1-0

[Event "Game Two"]
[Result "0-1"]

1. d4 d5 0-1
`
	results, errsCh := StreamGames(input)
	var got []GameResult
	for r := range results {
		got = append(got, r)
	}
	for e := range errsCh {
		t.Fatalf("unexpected error: %v", e)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
}

func sans(moves []Move) []string {
	out := make([]string, len(moves))
	for i, m := range moves {
		out[i] = m.SAN
	}
	return out
}
