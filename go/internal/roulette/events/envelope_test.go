package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/fairroulette/go/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_BetPlaced(t *testing.T) {
	var seed wallet.Seed
	better := wallet.DeriveAddress(seed, 0)

	data := []byte(`{
		"eventId": "e-1",
		"eventType": "betPlaced",
		"chainId": "chain",
		"timestamp": "2026-01-02T03:04:05Z",
		"payload": {"better": "` + better.String() + `", "amount": 10, "betNumber": 3}
	}`)

	env, ev, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "e-1", env.EventID)
	assert.Equal(t, KindBetPlaced, env.EventType)

	placed, ok := ev.(BetPlaced)
	require.True(t, ok)
	assert.Equal(t, better, placed.Better)
	assert.Equal(t, uint64(10), placed.Amount)
	assert.Equal(t, int64(3), placed.Number)
}

func TestDecode_RoundStoppedWithoutPayload(t *testing.T) {
	_, ev, err := Decode([]byte(`{"eventId":"x","eventType":"roundStopped","timestamp":"2026-01-02T03:04:05Z"}`))
	require.NoError(t, err)
	assert.Equal(t, RoundStopped{}, ev)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		unknown bool
	}{
		{name: "not json", data: `{`},
		{name: "unknown type", data: `{"eventType":"roundPaused","payload":{}}`, unknown: true},
		{name: "missing payload", data: `{"eventType":"roundNumber"}`},
		{name: "bad address", data: `{"eventType":"payout","payload":{"better":"zz","amount":1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode([]byte(tt.data))
			require.Error(t, err)
			if tt.unknown {
				assert.ErrorIs(t, err, ErrUnknownEvent)
			}
		})
	}
}

func TestNewEnvelope_DecodesBack(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env, err := NewEnvelope("chain", WinningNumber{Number: 5}, at)
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	_, ev, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, WinningNumber{Number: 5}, ev)
}
