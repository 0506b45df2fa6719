package chessengine

import "github.com/hendrikreh/chessmate/internal/errs"

// abs is a tiny local helper; avoids importing math for one int op.
func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// reachable reports whether a piece of kind at from can geometrically
// reach dest on an otherwise-arbitrary board, ignoring check/pin legality
// (spec §4.4: "Pinned-piece legality is NOT enforced by the engine").
func (b *board) reachable(kind PieceKind, from, dest Square) bool {
	df := dest.File - from.File
	dr := dest.Rank - from.Rank
	switch kind {
	case Knight:
		return (abs(df) == 1 && abs(dr) == 2) || (abs(df) == 2 && abs(dr) == 1)
	case King:
		return abs(df) <= 1 && abs(dr) <= 1 && (df != 0 || dr != 0)
	case Bishop:
		return abs(df) == abs(dr) && df != 0 && b.clearPath(from, dest)
	case Rook:
		return (df == 0) != (dr == 0) && b.clearPath(from, dest)
	case Queen:
		straight := (df == 0) != (dr == 0)
		diagonal := abs(df) == abs(dr) && df != 0
		return (straight || diagonal) && b.clearPath(from, dest)
	}
	return false
}

// clearPath reports whether every square strictly between from and dest
// (assumed colinear: same file, same rank, or same diagonal) is empty.
func (b *board) clearPath(from, dest Square) bool {
	stepFile := sign(dest.File - from.File)
	stepRank := sign(dest.Rank - from.Rank)
	cur := Square{File: from.File + stepFile, Rank: from.Rank + stepRank}
	for cur != dest {
		if !b.at(cur).empty() {
			return false
		}
		cur = Square{File: cur.File + stepFile, Rank: cur.Rank + stepRank}
	}
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// resolvePieceSource finds the unique source square for a non-pawn piece
// move, applying file/rank disambiguation and geometric reachability
// (spec §4.4).
func (b *board) resolvePieceSource(mv sanMove, color Color, ply int) (Square, error) {
	var candidates []Square
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			sq := Square{File: file, Rank: rank}
			p := b.at(sq)
			if p.empty() || p.Color != color || p.Kind != mv.piece {
				continue
			}
			if mv.disambigFile >= 0 && sq.File != mv.disambigFile {
				continue
			}
			if mv.disambigRank >= 0 && sq.Rank != mv.disambigRank {
				continue
			}
			if !b.reachable(mv.piece, sq, mv.dest) {
				continue
			}
			candidates = append(candidates, sq)
		}
	}
	switch len(candidates) {
	case 0:
		return Square{}, errs.SanResolution("no source", ply)
	case 1:
		return candidates[0], nil
	default:
		return Square{}, errs.SanResolution("ambiguous", ply)
	}
}

// pawnHomeRank returns the rank index (0-based) pawns of color start on.
func pawnHomeRank(color Color) int {
	if color == White {
		return 1
	}
	return 6
}

func pawnDirection(color Color) int {
	if color == White {
		return 1
	}
	return -1
}

// resolvedPawnMove describes a fully-resolved pawn move, including any
// en-passant capture square that must be vacated.
type resolvedPawnMove struct {
	from          Square
	enPassantCapt *Square
}

// resolvePawnSource implements spec §4.4's pawn resolution algorithm for
// both non-capture and capture SAN forms.
func (b *board) resolvePawnSource(mv sanMove, color Color, ply int) (resolvedPawnMove, error) {
	dir := pawnDirection(color)

	if !mv.capture {
		oneBack := Square{File: mv.dest.File, Rank: mv.dest.Rank - dir}
		if oneBack.valid() {
			p := b.at(oneBack)
			if !p.empty() && p.Color == color && p.Kind == Pawn {
				return resolvedPawnMove{from: oneBack}, nil
			}
		}
		if mv.dest.Rank == pawnHomeRank(color)+2*dir {
			twoBack := Square{File: mv.dest.File, Rank: mv.dest.Rank - 2*dir}
			mid := Square{File: mv.dest.File, Rank: mv.dest.Rank - dir}
			if twoBack.valid() && mid.valid() {
				p := b.at(twoBack)
				if !p.empty() && p.Color == color && p.Kind == Pawn && b.at(mid).empty() {
					return resolvedPawnMove{from: twoBack}, nil
				}
			}
		}
		return resolvedPawnMove{}, errs.SanResolution("no source", ply)
	}

	// Capture: candidate files are the declared source file, or both
	// adjacent files if none was declared.
	var files []int
	if mv.disambigFile >= 0 {
		files = []int{mv.disambigFile}
	} else {
		files = []int{mv.dest.File - 1, mv.dest.File + 1}
	}

	for _, f := range files {
		from := Square{File: f, Rank: mv.dest.Rank - dir}
		if !from.valid() {
			continue
		}
		p := b.at(from)
		if p.empty() || p.Color != color || p.Kind != Pawn {
			continue
		}
		destPiece := b.at(mv.dest)
		if !destPiece.empty() && destPiece.Color != color {
			return resolvedPawnMove{from: from}, nil
		}
		if b.enPassant != nil && *b.enPassant == mv.dest {
			captureSq := Square{File: mv.dest.File, Rank: mv.dest.Rank - dir}
			capturedPiece := b.at(captureSq)
			if !capturedPiece.empty() && capturedPiece.Color != color && capturedPiece.Kind == Pawn {
				return resolvedPawnMove{from: from, enPassantCapt: &captureSq}, nil
			}
		}
	}
	return resolvedPawnMove{}, errs.SanResolution("illegal capture target", ply)
}
