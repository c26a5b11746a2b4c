package session

import "errors"

// ErrNotInitialized is returned by pipelines called before Initialize.
var ErrNotInitialized = errors.New("session not initialized")

// ErrInvalidBet is returned when a staged bet is out of range or missing.
var ErrInvalidBet = errors.New("invalid bet")

// ErrInvalidDifficulty is returned by Initialize when the configured
// proof-of-work difficulty cannot be solved.
var ErrInvalidDifficulty = errors.New("invalid proof-of-work difficulty")
