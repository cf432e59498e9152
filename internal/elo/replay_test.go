package elo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaySingleGame(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	states := Replay([]Game{{Winner: a, Loser: b}})

	require.Len(t, states, 2)
	assert.Equal(t, 1516.0, states[a].Rating)
	assert.Equal(t, 1484.0, states[b].Rating)
	assert.Equal(t, []float64{1516}, states[a].Sparkline)
	assert.Equal(t, []float64{1484}, states[b].Sparkline)
}

func TestReplayOrderMatters(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	first := Replay([]Game{{a, b}, {b, c}})
	second := Replay([]Game{{b, c}, {a, b}})

	assert.NotEqual(t, first[a].Rating, second[a].Rating,
		"beating an already-weakened opponent is worth more")
}

func TestReplaySparklineWindow(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	games := make([]Game, 15)
	for i := range games {
		games[i] = Game{Winner: a, Loser: b}
	}
	states := Replay(games)

	assert.Len(t, states[a].Sparkline, SparklineDepth)
	assert.Equal(t, states[a].Rating, states[a].Sparkline[SparklineDepth-1],
		"last sparkline entry is the current rating")
}

func TestReplayEmpty(t *testing.T) {
	assert.Empty(t, Replay(nil))
}
