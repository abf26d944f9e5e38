package models

import "time"

// GameRecord is the archived copy of a finished game.
type GameRecord struct {
	ID            string     `json:"id" gorm:"primaryKey;size:64"`
	JoinCode      string     `json:"joinCode" gorm:"size:6;not null"`
	HostID        string     `json:"hostId" gorm:"size:64;index;not null"`
	HostName      string     `json:"hostName" gorm:"not null"`
	QuestionCount int        `json:"questionCount" gorm:"not null;default:0"`
	PlayedCount   int        `json:"playedCount" gorm:"not null;default:0"`
	CreatedAt     time.Time  `json:"createdAt"`
	StartedAt     *time.Time `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt"`
	ArchivedAt    time.Time  `json:"archivedAt" gorm:"autoCreateTime"`

	// Relationships
	Players   []PlayerResult   `json:"players,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
	Questions []QuestionRecord `json:"questions,omitempty" gorm:"foreignKey:GameID;constraint:OnDelete:CASCADE"`
}
