package game

import "time"

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const (
	MinOptions = 2
	MaxOptions = 6

	// HiddenOption replaces CorrectOption in views that must not reveal the answer.
	HiddenOption = -1
)

type Game struct {
	ID                       string            `json:"id"`
	JoinCode                 string            `json:"joinCode"`
	HostID                   string            `json:"hostId"`
	Status                   Status            `json:"status"`
	Questions                []Question        `json:"questions"`
	CurrentQuestionIndex     int               `json:"currentQuestionIndex"`
	CurrentQuestionStartedAt time.Time         `json:"currentQuestionStartedAt"`
	Players                  map[string]Player `json:"players"`
	AllowLateJoin            bool              `json:"allowLateJoin"`
	JoinSeq                  int               `json:"joinSeq"`
	CreatedAt                time.Time         `json:"createdAt"`
	StartedAt                *time.Time        `json:"startedAt,omitempty"`
	EndedAt                  *time.Time        `json:"endedAt,omitempty"`
	// Version counts committed writes. The store bumps it; the machine leaves it alone.
	Version                  int64             `json:"version"`
}

type Player struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	IsHost            bool          `json:"isHost"`
	Score             int           `json:"score"`
	HasAnswered       bool          `json:"hasAnswered"`
	LastAnswerCorrect bool          `json:"lastAnswerCorrect"`
	LastQuestionScore int           `json:"lastQuestionScore"`
	ResponseTime      time.Duration `json:"responseTime"`
	JoinOrder         int           `json:"joinOrder"`
	JoinedAt          time.Time     `json:"joinedAt"`
}

type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	// TimeLimit is in seconds; nil means untimed.
	TimeLimit *int `json:"timeLimit,omitempty"`
}

// Limit returns the question's time limit, or zero when untimed.
func (q Question) Limit() time.Duration {
	if q.TimeLimit == nil || *q.TimeLimit <= 0 {
		return 0
	}
	return time.Duration(*q.TimeLimit) * time.Second
}

func (q Question) Timed() bool {
	return q.Limit() > 0
}

// CurrentQuestion returns the active question while the game is playing.
func CurrentQuestion(g Game) (Question, bool) {
	if g.Status != StatusPlaying || g.CurrentQuestionIndex < 0 || g.CurrentQuestionIndex >= len(g.Questions) {
		return Question{}, false
	}
	return g.Questions[g.CurrentQuestionIndex], true
}

// clone returns a copy of g that shares no mutable memory with it.
func (g Game) clone() Game {
	out := g
	if g.Questions != nil {
		out.Questions = make([]Question, len(g.Questions))
		for i, q := range g.Questions {
			out.Questions[i] = q.clone()
		}
	}
	if g.Players != nil {
		out.Players = make(map[string]Player, len(g.Players))
		for id, p := range g.Players {
			out.Players[id] = p
		}
	}
	if g.StartedAt != nil {
		t := *g.StartedAt
		out.StartedAt = &t
	}
	if g.EndedAt != nil {
		t := *g.EndedAt
		out.EndedAt = &t
	}
	return out
}

func (q Question) clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.TimeLimit != nil {
		v := *q.TimeLimit
		out.TimeLimit = &v
	}
	return out
}

func (p Player) resetAnswer() Player {
	p.HasAnswered = false
	p.LastAnswerCorrect = false
	p.LastQuestionScore = 0
	p.ResponseTime = 0
	return p
}
