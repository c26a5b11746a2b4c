package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/round"
)

const msgFundsRequested = "Funds requested from the faucet. Waiting for them to reach the wallet."

var errEmptyChallenge = errors.New("faucet returned an empty proof-of-work challenge")

// RequestFunds asks the faucet for funds. Every request after the first goes
// to a fresh address, rotated before the challenge is fetched so the
// challenge is bound to the receiving address. Failures are reported through
// the notifier and never returned; the balance poller shows when funds land.
func (s *Session) RequestFunds(ctx context.Context) error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}

	s.faucetMu.Lock()
	defer s.faucetMu.Unlock()

	s.machine.Log(round.LogTagFunds, msgFundsRequested)

	ledger := s.ledger.Load()
	if s.requestedBefore {
		ledger.Rotate()
	}
	s.requestedBefore = true

	s.requesting.Store(true)
	defer s.requesting.Store(false)

	id, err := s.requestFunds(ctx)
	if err != nil {
		s.fail("", err)
		return nil
	}

	log.Info().
		Str("request_id", id).
		Uint64("address_index", ledger.Index()).
		Msg("faucet request sent")
	return nil
}

func (s *Session) requestFunds(ctx context.Context) (string, error) {
	address := s.ledger.Load().Address()

	challenge, err := s.transport.GetFaucetChallenge(ctx, address)
	if err != nil {
		return "", err
	}
	if len(challenge.PoWBuffer) == 0 {
		return "", errEmptyChallenge
	}

	nonce, err := s.solver.Solve(ctx, s.config.PoWDifficulty, challenge.PoWBuffer)
	if err != nil {
		return "", fmt.Errorf("proof of work: %w", err)
	}
	challenge.Request.Nonce = nonce

	return s.transport.SendFaucetRequest(ctx, challenge.Request)
}
