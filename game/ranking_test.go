package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedIDs(ranked []RankedPlayer) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.Player.ID
	}
	return ids
}

func TestRankPlayersTieKeepsJoinOrder(t *testing.T) {
	g := Game{
		HostID: "h",
		Players: map[string]Player{
			"h": {ID: "h", IsHost: true, Score: 500, JoinOrder: 0},
			"A": {ID: "A", Score: 10, JoinOrder: 1},
			"B": {ID: "B", Score: 30, JoinOrder: 2},
			"C": {ID: "C", Score: 30, JoinOrder: 3},
		},
	}

	ranked := RankPlayers(g)

	assert.Equal(t, []string{"B", "C", "A"}, rankedIDs(ranked))
	assert.Equal(t, []int{1, 1, 3}, []int{ranked[0].Rank, ranked[1].Rank, ranked[2].Rank})
}

func TestRankPlayersSameJoinOrderFallsBackToID(t *testing.T) {
	g := Game{
		Players: map[string]Player{
			"zed": {ID: "zed", Score: 5},
			"amy": {ID: "amy", Score: 5},
		},
	}

	assert.Equal(t, []string{"amy", "zed"}, rankedIDs(RankPlayers(g)))
}

func TestRankPlayersOnlyHost(t *testing.T) {
	g := Game{Players: map[string]Player{"h": {ID: "h", IsHost: true}}}

	assert.Empty(t, RankPlayers(g))
}

func TestIsHost(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m)

	assert.True(t, IsHost(g, "host"))
	assert.False(t, IsHost(g, "p1"))
	assert.False(t, IsHost(g, "nobody"))
	assert.False(t, IsHost(g, ""))

	host, ok := Host(g)
	require.True(t, ok)
	assert.Equal(t, "Hannah", host.Name)
}

func TestAnswerStats(t *testing.T) {
	assert.Equal(t, AnswerStatistics{}, AnswerStats(Game{
		Players: map[string]Player{"h": {ID: "h", IsHost: true, HasAnswered: true}},
	}))

	g := Game{
		Players: map[string]Player{
			"h":  {ID: "h", IsHost: true, HasAnswered: true},
			"p1": {ID: "p1", HasAnswered: true},
			"p2": {ID: "p2"},
			"p3": {ID: "p3"},
		},
	}
	stats := AnswerStats(g)
	assert.Equal(t, 1, stats.AnsweredCount)
	assert.Equal(t, 3, stats.TotalPlayers)
	assert.InDelta(t, 33.33, stats.AnsweredPercentage, 0.001)
}
