package chessengine

import (
	"github.com/hendrikreh/chessmate/internal/errs"
	"github.com/hendrikreh/chessmate/internal/pgn"
)

// Ply is one replayed half-move: its SAN text and the FEN of the
// resulting position (spec §3/§4.4).
type Ply struct {
	SAN string
	FEN string
}

// Engine replays a sequence of SAN moves against a mutable board. It owns
// no state shared with any other Engine (spec §5), so many games may be
// replayed concurrently, each with its own Engine.
type Engine struct {
	b *board
}

// NewEngine returns an Engine positioned at the standard chess start.
func NewEngine() *Engine {
	return &Engine{b: newStartingBoard()}
}

// ReplayGame applies moves in order and returns the per-ply FEN emitted
// after each one (spec §4.4). It trusts that moves are already a legal
// game; it enforces board geometry and disambiguation but not check/pin
// legality.
func ReplayGame(moves []pgn.Move) ([]Ply, error) {
	e := NewEngine()
	out := make([]Ply, 0, len(moves))
	for _, m := range moves {
		fen, err := e.Move(m.SAN, m.Ply)
		if err != nil {
			return nil, err
		}
		out = append(out, Ply{SAN: m.SAN, FEN: fen})
	}
	return out, nil
}

// FenAfterMove returns the FEN at turn n for color, per spec §4.4's
// convenience operation: index = 2(n-1) + (0 if White else 1) into the
// emitted FEN list.
func FenAfterMove(pgnText string, color Color, n int) (string, error) {
	if n <= 0 {
		return "", errs.SanResolution("turn number must be positive", 0)
	}
	games, err := pgn.ParseAll(pgnText)
	if err != nil {
		return "", err
	}
	if len(games) == 0 {
		return "", errs.PgnParse("no games found", 0)
	}
	plies, err := ReplayGame(games[0].Moves)
	if err != nil {
		return "", err
	}
	idx := 2*(n-1)
	if color == Black {
		idx++
	}
	if idx < 0 || idx >= len(plies) {
		return "", errs.SanResolution("turn out of range", idx+1)
	}
	return plies[idx].FEN, nil
}

// Move applies one SAN token and returns the resulting FEN.
func (e *Engine) Move(san string, ply int) (string, error) {
	mv, err := parseSAN(san, ply)
	if err != nil {
		return "", err
	}

	switch {
	case mv.castleKingside:
		if err := e.b.applyCastle(e.b.active, true); err != nil {
			return "", errs.SanResolution(err.Error(), ply)
		}
	case mv.castleQueenside:
		if err := e.b.applyCastle(e.b.active, false); err != nil {
			return "", errs.SanResolution(err.Error(), ply)
		}
	case mv.piece == NoPiece:
		resolved, err := e.b.resolvePawnSource(mv, e.b.active, ply)
		if err != nil {
			return "", err
		}
		e.b.applyPawnMove(resolved, mv)
	default:
		from, err := e.b.resolvePieceSource(mv, e.b.active, ply)
		if err != nil {
			return "", err
		}
		e.b.applyPieceMove(from, mv)
	}

	return e.b.FEN(), nil
}

// applyPieceMove moves (and, if occupied by an opponent, captures) a
// non-pawn, non-king-castle piece, then updates ancillary state.
func (b *board) applyPieceMove(from Square, mv sanMove) {
	mover := b.at(from)
	captured := !b.at(mv.dest).empty()

	b.clear(from)
	b.set(mv.dest, mover)

	if mover.Kind == King {
		if mover.Color == White {
			b.castling.WhiteKing = false
			b.castling.WhiteQueen = false
		} else {
			b.castling.BlackKing = false
			b.castling.BlackQueen = false
		}
	}
	b.clearRookRightOnTouch(from)
	b.clearRookRightOnTouch(mv.dest)

	b.enPassant = nil
	b.advanceClocksAndTurn(false, captured)
}

// applyPawnMove executes a pawn move (including en-passant capture and
// promotion) and updates ancillary state.
func (b *board) applyPawnMove(resolved resolvedPawnMove, mv sanMove) {
	mover := b.at(resolved.from)
	if resolved.enPassantCapt != nil {
		b.clear(*resolved.enPassantCapt)
	}
	b.clear(resolved.from)

	final := mover
	if mv.promotion != NoPiece {
		final = Piece{Color: mover.Color, Kind: mv.promotion}
	}
	b.set(mv.dest, final)
	b.clearRookRightOnTouch(mv.dest)

	wasTwoSquareAdvance := abs(mv.dest.Rank-resolved.from.Rank) == 2
	if wasTwoSquareAdvance {
		mid := Square{File: mv.dest.File, Rank: (mv.dest.Rank + resolved.from.Rank) / 2}
		b.enPassant = &mid
	} else {
		b.enPassant = nil
	}

	b.advanceClocksAndTurn(true, mv.capture)
}

// applyCastle executes O-O/O-O-O for color on its home rank (spec §4.4).
func (b *board) applyCastle(color Color, kingside bool) error {
	rank := 0
	if color == Black {
		rank = 7
	}
	king := Square{File: 4, Rank: rank}
	var rookFrom, kingTo, rookTo Square
	if kingside {
		rookFrom = Square{File: 7, Rank: rank}
		kingTo = Square{File: 6, Rank: rank}
		rookTo = Square{File: 5, Rank: rank}
	} else {
		rookFrom = Square{File: 0, Rank: rank}
		kingTo = Square{File: 2, Rank: rank}
		rookTo = Square{File: 3, Rank: rank}
	}

	kingPiece := b.at(king)
	rookPiece := b.at(rookFrom)
	b.clear(king)
	b.clear(rookFrom)
	b.set(kingTo, kingPiece)
	b.set(rookTo, rookPiece)

	if color == White {
		b.castling.WhiteKing = false
		b.castling.WhiteQueen = false
	} else {
		b.castling.BlackKing = false
		b.castling.BlackQueen = false
	}

	b.enPassant = nil
	b.advanceClocksAndTurn(false, false)
	return nil
}

// clearRookRightOnTouch clears the castling right tied to a corner square
// when a rook leaves it or is captured on it (spec §4.4).
func (b *board) clearRookRightOnTouch(sq Square) {
	switch {
	case sq == (Square{File: 0, Rank: 0}):
		b.castling.WhiteQueen = false
	case sq == (Square{File: 7, Rank: 0}):
		b.castling.WhiteKing = false
	case sq == (Square{File: 0, Rank: 7}):
		b.castling.BlackQueen = false
	case sq == (Square{File: 7, Rank: 7}):
		b.castling.BlackKing = false
	}
}

// advanceClocksAndTurn applies the halfmove-clock and fullmove-number
// rules common to every move type (spec §4.4).
func (b *board) advanceClocksAndTurn(pawnMove, capture bool) {
	if pawnMove || capture {
		b.halfmove = 0
	} else {
		b.halfmove++
	}
	if b.active == Black {
		b.fullmove++
	}
	b.active = b.active.Opponent()
}
