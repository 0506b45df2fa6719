package chessengine

import (
	"regexp"

	"github.com/hendrikreh/chessmate/internal/errs"
)

// sanMove is a parsed-but-unresolved SAN token: the grammar from spec
// §4.4, before source-square resolution.
type sanMove struct {
	castleKingside  bool
	castleQueenside bool
	piece           PieceKind // NoPiece for pawn moves
	disambigFile    int       // -1 if absent
	disambigRank    int       // -1 if absent
	capture         bool
	dest            Square
	promotion       PieceKind // NoPiece if not a promotion
}

var pieceMoveRe = regexp.MustCompile(`^([NBRQK])([a-h])?([1-8])?(x)?([a-h][1-8])(=([NBRQ]))?$`)
var pawnMoveRe = regexp.MustCompile(`^([a-h])?(x)?([a-h][1-8])(=([NBRQ]))?$`)

func pieceKindFromLetter(l byte) PieceKind {
	switch l {
	case 'N':
		return Knight
	case 'B':
		return Bishop
	case 'R':
		return Rook
	case 'Q':
		return Queen
	case 'K':
		return King
	}
	return NoPiece
}

// parseSAN parses the decoration-stripped SAN token san (the pgn package
// already strips +/# and move numbers) into a sanMove.
func parseSAN(san string, ply int) (sanMove, error) {
	switch san {
	case "O-O", "0-0":
		return sanMove{castleKingside: true}, nil
	case "O-O-O", "0-0-0":
		return sanMove{castleQueenside: true}, nil
	}

	if m := pieceMoveRe.FindStringSubmatch(san); m != nil {
		mv := sanMove{
			piece:        pieceKindFromLetter(m[1][0]),
			disambigFile: -1,
			disambigRank: -1,
			capture:      m[4] == "x",
		}
		if m[2] != "" {
			mv.disambigFile = int(m[2][0] - 'a')
		}
		if m[3] != "" {
			mv.disambigRank = int(m[3][0] - '1')
		}
		dest, ok := squareFromAlgebraic(m[5])
		if !ok {
			return sanMove{}, errs.SanResolution("invalid destination square", ply)
		}
		mv.dest = dest
		if m[7] != "" {
			mv.promotion = pieceKindFromLetter(m[7][0])
		}
		return mv, nil
	}

	if m := pawnMoveRe.FindStringSubmatch(san); m != nil {
		mv := sanMove{
			piece:        NoPiece,
			disambigFile: -1,
			disambigRank: -1,
			capture:      m[2] == "x",
		}
		if m[1] != "" {
			mv.disambigFile = int(m[1][0] - 'a')
		}
		dest, ok := squareFromAlgebraic(m[3])
		if !ok {
			return sanMove{}, errs.SanResolution("invalid destination square", ply)
		}
		mv.dest = dest
		if m[5] != "" {
			mv.promotion = pieceKindFromLetter(m[5][0])
		}
		return mv, nil
	}

	return sanMove{}, errs.SanResolution("unrecognized SAN token", ply)
}
