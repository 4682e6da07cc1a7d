// Package rules decides move legality and wins. Everything here is pure:
// functions read or mutate only the session they are given.
package rules

import (
	"fmt"

	"github.com/EliasAN1/Stacktictoe/internal/model"
)

// WinningLines lists every line in evaluation order:
// rows top to bottom, columns left to right, then both diagonals
var WinningLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

func illegal(reason error) error {
	return fmt.Errorf("%w: %w", model.ErrIllegalMove, reason)
}

// ValidateMove checks whether mover may place a piece of size on square.
// It returns the mover's color when the move is legal.
func ValidateMove(session *model.Session, mover string, square int, size model.PieceSize) (model.Color, error) {
	if session.Status != model.StatusPlaying {
		return model.ColorNone, illegal(model.ErrSessionOver)
	}
	if !size.IsPlaceable() {
		return model.ColorNone, illegal(model.ErrInvalidSize)
	}
	if !model.IsValidSquare(square) {
		return model.ColorNone, illegal(model.ErrInvalidSquare)
	}

	color, ok := session.ColorOf(mover)
	if !ok {
		return model.ColorNone, illegal(model.ErrNotParticipant)
	}
	if session.TurnOwner != mover {
		return model.ColorNone, illegal(model.ErrNotYourTurn)
	}
	if session.Player(color).Pieces.Count(size) <= 0 {
		return model.ColorNone, illegal(model.ErrNoPiecesLeft)
	}

	// Capture needs a strictly larger piece; an empty cell has value 0
	if session.Board[square].Size.Value() >= size.Value() {
		return model.ColorNone, illegal(model.ErrCaptureTooSmall)
	}

	return color, nil
}

// ApplyMove validates and performs a move: the piece leaves the mover's
// inventory and replaces whatever occupied the square. A rejected move
// leaves the session untouched. Win detection and turn passing are separate.
func ApplyMove(session *model.Session, mover string, square int, size model.PieceSize) (model.Color, error) {
	color, err := ValidateMove(session, mover, square, size)
	if err != nil {
		return model.ColorNone, err
	}

	session.Player(color).Pieces.Take(size)
	session.Board[square] = model.Cell{Size: size, Owner: color}
	return color, nil
}

// DetectWin returns the owner and cells of the first line, in evaluation
// order, whose three cells share an owner. Piece sizes do not matter.
func DetectWin(board model.Board) (model.Color, []int, bool) {
	for _, line := range WinningLines {
		owner := board[line[0]].Owner
		if owner == model.ColorNone {
			continue
		}
		if board[line[1]].Owner == owner && board[line[2]].Owner == owner {
			return owner, []int{line[0], line[1], line[2]}, true
		}
	}
	return model.ColorNone, nil, false
}

// PassTurn hands the turn to the other player
func PassTurn(session *model.Session) {
	if opponent, ok := session.Opponent(session.TurnOwner); ok {
		session.TurnOwner = opponent
	}
}
