package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownEvent is returned when an envelope carries an event type this
// client does not handle.
var ErrUnknownEvent = errors.New("unknown event type")

// Envelope is the wire form shared by every feed.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType Kind            `json:"eventType"`
	ChainID   string          `json:"chainId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope wraps ev with a fresh event id.
func NewEnvelope(chainID string, ev Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.Kind(), err)
	}
	return Envelope{
		EventID:   uuid.New().String(),
		EventType: ev.Kind(),
		ChainID:   chainID,
		Timestamp: at.UTC(),
		Payload:   payload,
	}, nil
}

// Decode parses an envelope and its typed payload.
func Decode(data []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	ev, err := DecodePayload(env.EventType, env.Payload)
	if err != nil {
		return env, nil, err
	}
	return env, ev, nil
}

// DecodePayload parses payload into the variant named by kind.
func DecodePayload(kind Kind, payload json.RawMessage) (Event, error) {
	switch kind {
	case KindRoundStarted:
		return unmarshalPayload[RoundStarted](kind, payload)
	case KindRoundStopped:
		return RoundStopped{}, nil
	case KindRoundNumber:
		return unmarshalPayload[RoundNumber](kind, payload)
	case KindWinningNumber:
		return unmarshalPayload[WinningNumber](kind, payload)
	case KindBetPlaced:
		return unmarshalPayload[BetPlaced](kind, payload)
	case KindPayout:
		return unmarshalPayload[Payout](kind, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, kind)
	}
}

func unmarshalPayload[T Event](kind Kind, payload json.RawMessage) (Event, error) {
	var ev T
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("missing %s payload", kind)
	}
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", kind, err)
	}
	return ev, nil
}
