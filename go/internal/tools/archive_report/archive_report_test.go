package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, report{
		Rounds:         10,
		LocalBets:      4,
		LocalWins:      1,
		RoundsWithWins: 6,
		Numbers:        []numberCount{{Number: 3, Rounds: 2}, {Number: 7, Rounds: 1}},
		TopBetters:     []betterTotal{{Better: "abc", Bets: 3, Staked: 120}},
	})

	assert.Equal(t, `Rounds archived: 10 (6 with winners)
Local bets: 4, wins: 1 (25.0%)
Winning numbers:
  3: 2
  7: 1
Top betters:
  abc  3 bets, 120 staked
`, buf.String())
}

func TestRender_Empty(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, report{})
	assert.Equal(t, "Rounds archived: 0 (0 with winners)\nLocal bets: 0, wins: 0\n", buf.String())
}
