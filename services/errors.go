package services

import "errors"

var (
	ErrGameNotFound    = errors.New("game not found")
	ErrJoinCodeTaken   = errors.New("join code already in use")
	ErrNotHost         = errors.New("only the host can do this")
	ErrNotInGame       = errors.New("player is not in this game")
	ErrResultsNotFound = errors.New("results not found")
	ErrUpdateConflict  = errors.New("game was modified concurrently, try again")
	ErrInvalidToken    = errors.New("invalid or expired token")
)
