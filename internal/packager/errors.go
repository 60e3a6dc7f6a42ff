package packager

import (
	"errors"
	"fmt"
)

var (
	ErrLengthMismatch     = errors.New("token length mismatch")
	ErrShapeMismatch      = errors.New("attention shape mismatch")
	ErrBoundaryOutOfRange = errors.New("segment boundary out of range")
)

type LengthMismatchError struct {
	Left  int
	Right int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("left tokens have %d positions, while right tokens have %d", e.Left, e.Right)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }

type ShapeMismatchError struct {
	Attention int
	Tokens    int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("attention has %d positions, while number of tokens is %d", e.Attention, e.Tokens)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

type BoundaryOutOfRangeError struct {
	Boundary  int
	Positions int
}

func (e *BoundaryOutOfRangeError) Error() string {
	return fmt.Sprintf("sentence B start %d is outside [0, %d]", e.Boundary, e.Positions)
}

func (e *BoundaryOutOfRangeError) Is(target error) bool { return target == ErrBoundaryOutOfRange }
