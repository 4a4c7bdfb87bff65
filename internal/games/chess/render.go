package chess

import (
	"strings"

	"github.com/vovakirdan/duelhub/internal/multiplayer"
)

const files = "abcdefgh"

// Render draws the board from the FEN placement field. Black's perspective
// flips both ranks and files. Empty squares are dots.
func (g *Game) Render(pos multiplayer.Position, perspective multiplayer.Slot) string {
	board, ok := decodeBoard(string(pos))
	if !ok {
		return "invalid position"
	}

	ranks := []int{0, 1, 2, 3, 4, 5, 6, 7} // board[0] is rank 8
	cols := []int{0, 1, 2, 3, 4, 5, 6, 7}
	if perspective == multiplayer.SlotSecond {
		reverse(ranks)
		reverse(cols)
	}

	var sb strings.Builder
	for _, r := range ranks {
		sb.WriteByte(byte('8' - r))
		sb.WriteByte(' ')
		for i, c := range cols {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(board[r][c])
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  ")
	for i, c := range cols {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(files[c])
	}
	return sb.String()
}

// decodeBoard expands the placement field of a FEN into an 8x8 grid.
func decodeBoard(fen string) ([8][8]byte, bool) {
	var board [8][8]byte
	fields := strings.Fields(fen)
	if len(fields) == 0 {
		return board, false
	}
	rows := strings.Split(fields[0], "/")
	if len(rows) != 8 {
		return board, false
	}
	for r, row := range rows {
		c := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			switch {
			case ch >= '1' && ch <= '8':
				for n := 0; n < int(ch-'0'); n++ {
					if c >= 8 {
						return board, false
					}
					board[r][c] = '.'
					c++
				}
			case strings.IndexByte("pnbrqkPNBRQK", ch) >= 0:
				if c >= 8 {
					return board, false
				}
				board[r][c] = ch
				c++
			default:
				return board, false
			}
		}
		if c != 8 {
			return board, false
		}
	}
	return board, true
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
