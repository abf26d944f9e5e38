package game

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidState     = errors.New("operation not allowed in current game status")
	ErrNotFound         = errors.New("not found")
	ErrDuplicatePlayer  = errors.New("player already in game")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrEmptyQuestionSet = errors.New("game has no questions")
	ErrInvalidOperation = errors.New("invalid operation")
)
