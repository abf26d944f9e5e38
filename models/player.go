package models

import "time"

// PlayerResult is a player's final standing in an archived game.
type PlayerResult struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	GameID   string    `json:"gameId" gorm:"size:64;not null;uniqueIndex:idx_game_player"`
	PlayerID string    `json:"playerId" gorm:"size:64;not null;uniqueIndex:idx_game_player"`
	Name     string    `json:"name" gorm:"not null"`
	Score    int       `json:"score" gorm:"not null;default:0"`
	Rank     int       `json:"rank" gorm:"not null"`
	JoinedAt time.Time `json:"joinedAt"`
}
