package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
)

const (
	msgBetSent      = "Funds sent to the chain address. Waiting for the contract to accept the bet."
	msgBetNextRound = "The round is closed. Your bet will be placed in the next round."
)

// StageBet chooses the number and amount the next PlaceBet submits.
func (s *Session) StageBet(selection int64, amount uint64) error {
	if selection < 1 || selection > BettingNumbers {
		return fmt.Errorf("%w: number %d outside 1..%d", ErrInvalidBet, selection, BettingNumbers)
	}
	if amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidBet)
	}
	s.machine.StageBet(selection, amount)
	return nil
}

// PlaceBet submits the staged bet with the current key pair. Acceptance is
// only recorded when the betPlaced event arrives; until then the round stays
// in the placing state, even after a failure. Callers recover the UI with
// ResetBetting.
func (s *Session) PlaceBet(ctx context.Context) error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}

	staged := s.machine.Snapshot().Round
	if staged.BetAmount == 0 {
		return fmt.Errorf("%w: no bet staged", ErrInvalidBet)
	}

	s.machine.BeginPlacing()

	address, keyPair := s.ledger.Load().Current()
	txID, err := s.transport.PlaceBet(ctx, keyPair, address, staged.BetSelection, staged.BetAmount)
	if err != nil {
		s.fail("Error placing bet", err)
		return fmt.Errorf("place bet: %w", err)
	}

	log.Info().
		Str("tx_id", txID).
		Int64("number", staged.BetSelection).
		Uint64("amount", staged.BetAmount).
		Msg("bet submitted")
	s.machine.Log(round.LogTagSmartContract, msgBetSent)

	if !s.machine.Snapshot().Round.Active {
		s.machine.Log(round.LogTagSmartContract, msgBetNextRound)
	}
	return nil
}

// ResetBetting clears the placing state after a failed submission.
func (s *Session) ResetBetting() {
	s.machine.CancelPlacing()
}
