package game

import (
	"math"
	"sort"
)

type RankedPlayer struct {
	Player Player `json:"player"`
	Rank   int    `json:"rank"`
}

type AnswerStatistics struct {
	AnsweredCount      int     `json:"answeredCount"`
	TotalPlayers       int     `json:"totalPlayers"`
	AnsweredPercentage float64 `json:"answeredPercentage"`
}

// RankPlayers orders the non-host players by score, highest first.
// Equal scores keep join order (then player id) and share a rank.
func RankPlayers(g Game) []RankedPlayer {
	players := make([]Player, 0, len(g.Players))
	for _, p := range g.Players {
		if p.IsHost {
			continue
		}
		players = append(players, p)
	}

	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.JoinOrder != b.JoinOrder {
			return a.JoinOrder < b.JoinOrder
		}
		return a.ID < b.ID
	})

	ranked := make([]RankedPlayer, len(players))
	for i, p := range players {
		rank := i + 1
		if i > 0 && p.Score == players[i-1].Score {
			rank = ranked[i-1].Rank
		}
		ranked[i] = RankedPlayer{Player: p, Rank: rank}
	}
	return ranked
}

// Host returns the game's host player.
func Host(g Game) (Player, bool) {
	if p, ok := g.Players[g.HostID]; ok && p.IsHost {
		return p, true
	}
	for _, p := range g.Players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}

func IsHost(g Game, userID string) bool {
	if userID == "" {
		return false
	}
	host, ok := Host(g)
	return ok && host.ID == userID
}

// AnswerStats counts answers for the current question among non-host players.
func AnswerStats(g Game) AnswerStatistics {
	var stats AnswerStatistics
	for _, p := range g.Players {
		if p.IsHost {
			continue
		}
		stats.TotalPlayers++
		if p.HasAnswered {
			stats.AnsweredCount++
		}
	}
	if stats.TotalPlayers == 0 {
		return stats
	}
	pct := float64(stats.AnsweredCount) / float64(stats.TotalPlayers) * 100
	stats.AnsweredPercentage = math.Round(pct*100) / 100
	return stats
}
