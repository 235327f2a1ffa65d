package entity

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-duel/internal/apperror"
)

const BoardSize = 9

var WinCombos = [][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

type Board [BoardSize]Mark

type OutcomeKind string

const (
	InProgress OutcomeKind = "in_progress"
	Win        OutcomeKind = "win"
	Draw       OutcomeKind = "draw"
)

// Outcome - result of evaluating a board. Winner is set only for Win.
type Outcome struct {
	Kind   OutcomeKind
	Winner Mark
}

func (that Outcome) IsTerminal() bool {
	return that.Kind != InProgress
}

// Apply - returns a copy of the board with mark placed at index.
func (that Board) Apply(index int, mark Mark) (Board, error) {
	if index < 0 || index >= BoardSize {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, index)
	}

	if !mark.Valid() {
		return that, fmt.Errorf("%w: mark %q", apperror.ErrIllegalMove, mark)
	}

	if that[index] != EmptyCell {
		return that, fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, index)
	}

	that[index] = mark

	return that, nil
}

func (that Board) Evaluate() Outcome {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return Outcome{Kind: Win, Winner: a}
		}
	}

	// the game will continue until all the squares are full
	if !that.IsFull() {
		return Outcome{Kind: InProgress}
	}

	return Outcome{Kind: Draw}
}

func (that Board) IsFull() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}
	return true
}

func (that Board) MoveCount() int {
	count := 0
	for _, cell := range that {
		if cell != EmptyCell {
			count++
		}
	}
	return count
}
