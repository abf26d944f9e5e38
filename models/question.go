package models

// QuestionRecord is a question as it was played.
type QuestionRecord struct {
	ID            uint     `json:"-" gorm:"primaryKey"`
	GameID        string   `json:"gameId" gorm:"size:64;not null;index"`
	QuestionID    string   `json:"questionId" gorm:"size:64;not null"`
	Position      int      `json:"position" gorm:"not null"`
	Text          string   `json:"text" gorm:"not null"`
	Options       []string `json:"options" gorm:"serializer:json;type:jsonb"`
	CorrectOption int      `json:"correctOption" gorm:"not null"`
	TimeLimit     *int     `json:"timeLimit,omitempty"`
}
