// Package fen validates and normalizes Forsyth-Edwards Notation strings,
// and provides a stable hash used as the deterministic vector id for an
// embedded position.
package fen

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/hendrikreh/chessmate/internal/errs"
)

const castlingOrder = "KQkq"

// Normalize validates raw against the structural and chess-legality
// constraints in spec §3/§4.1 and re-emits it in canonical form:
// "placement active castling en_passant halfmove fullmove", single spaces,
// castling letters reordered to KQkq.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errs.InvalidFen("empty", "")
	}

	fields := strings.Fields(trimmed)
	if len(fields) != 6 {
		return "", errs.InvalidFen(fmt.Sprintf("FEN must have exactly 6 fields, got %d", len(fields)), trimmed)
	}

	placement, active, castling, enPassant, halfmove, fullmove := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	if err := validatePlacement(placement); err != nil {
		return "", err
	}
	if active != "w" && active != "b" {
		return "", errs.InvalidFen("active color must be 'w' or 'b'", active)
	}
	canonicalCastling, err := normalizeCastling(castling)
	if err != nil {
		return "", err
	}
	if err := validateEnPassant(enPassant, active); err != nil {
		return "", err
	}
	halfmoveN, err := parseNonNegativeInt(halfmove, "halfmove clock")
	if err != nil {
		return "", err
	}
	fullmoveN, err := parsePositiveInt(fullmove, "fullmove number")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s %s %d %d", placement, active, canonicalCastling, enPassant, halfmoveN, fullmoveN), nil
}

// Hash returns a stable hex digest of the normalized bytes of fen. Callers
// should normalize first; Hash does not normalize for them so that it
// remains a pure function of its literal input (used as-is by the worker
// as the vector id, per spec §4.1/§4.7).
func Hash(fen string) string {
	sum := md5.Sum([]byte(fen))
	return hex.EncodeToString(sum[:])
}

func validatePlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return errs.InvalidFen(fmt.Sprintf("piece placement must have 8 ranks, got %d", len(ranks)), placement)
	}

	var whiteKings, blackKings, whitePawns, blackPawns int

	for i, rank := range ranks {
		rankNum := 8 - i
		squares := 0
		lastWasDigit := false
		for _, ch := range rank {
			switch {
			case ch >= '1' && ch <= '8':
				if lastWasDigit {
					return errs.InvalidFen("adjacent digits in rank", fmt.Sprintf("rank %d", rankNum))
				}
				squares += int(ch - '0')
				lastWasDigit = true
			case ch == '/':
				return errs.InvalidFen("unexpected '/' inside rank", fmt.Sprintf("rank %d", rankNum))
			default:
				lastWasDigit = false
				switch ch {
				case 'K':
					whiteKings++
				case 'k':
					blackKings++
				case 'P':
					whitePawns++
					if rankNum == 1 || rankNum == 8 {
						return errs.InvalidFen("pawn on rank 1 or 8", fmt.Sprintf("rank %d", rankNum))
					}
				case 'p':
					blackPawns++
					if rankNum == 1 || rankNum == 8 {
						return errs.InvalidFen("pawn on rank 1 or 8", fmt.Sprintf("rank %d", rankNum))
					}
				case 'Q', 'R', 'B', 'N', 'q', 'r', 'b', 'n':
					// non-king, non-pawn piece: no per-piece count constraint
				default:
					return errs.InvalidFen(fmt.Sprintf("invalid character %q", ch), fmt.Sprintf("rank %d", rankNum))
				}
				squares++
			}
		}
		if squares != 8 {
			return errs.InvalidFen(fmt.Sprintf("rank has %d squares, expected 8", squares), fmt.Sprintf("rank %d", rankNum))
		}
	}

	if whiteKings != 1 || blackKings != 1 {
		return errs.InvalidFen("FEN must contain exactly one white king and one black king", "")
	}
	if whitePawns > 8 {
		return errs.InvalidFen("more than 8 white pawns", "")
	}
	if blackPawns > 8 {
		return errs.InvalidFen("more than 8 black pawns", "")
	}
	return nil
}

func normalizeCastling(castling string) (string, error) {
	if castling == "-" {
		return "-", nil
	}
	if castling == "" {
		return "", errs.InvalidFen("castling field must not be empty", castling)
	}
	seen := map[byte]bool{}
	for i := 0; i < len(castling); i++ {
		c := castling[i]
		if !strings.ContainsRune(castlingOrder, rune(c)) {
			return "", errs.InvalidFen(fmt.Sprintf("invalid castling character %q", c), castling)
		}
		if seen[c] {
			return "", errs.InvalidFen("duplicate castling character", castling)
		}
		seen[c] = true
	}
	var b strings.Builder
	for i := 0; i < len(castlingOrder); i++ {
		if seen[castlingOrder[i]] {
			b.WriteByte(castlingOrder[i])
		}
	}
	if b.Len() == 0 {
		return "", errs.InvalidFen("castling field resolves to empty set", castling)
	}
	return b.String(), nil
}

func validateEnPassant(enPassant, active string) error {
	if enPassant == "-" {
		return nil
	}
	if len(enPassant) != 2 {
		return errs.InvalidFen("en passant square must be 2 characters or '-'", enPassant)
	}
	file := enPassant[0]
	rank := enPassant[1]
	if file < 'a' || file > 'h' {
		return errs.InvalidFen("en passant file must be a-h", enPassant)
	}
	wantRank := byte('6')
	if active == "b" {
		wantRank = '3'
	}
	if rank != wantRank {
		return errs.InvalidFen(fmt.Sprintf("en passant rank must be %c when active color is %s", wantRank, active), enPassant)
	}
	return nil
}

func parseNonNegativeInt(s, label string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.InvalidFen(label+" must be a non-negative integer", s)
	}
	return n, nil
}

func parsePositiveInt(s, label string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errs.InvalidFen(label+" must be a positive integer", s)
	}
	return n, nil
}
