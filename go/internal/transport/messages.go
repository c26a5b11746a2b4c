package transport

import (
	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

// ServiceName is the fully-qualified name of the roulette RPC service.
const ServiceName = "fairroulette.v1.RouletteService"

const (
	GetRoundStatusProcedure       = "/" + ServiceName + "/GetRoundStatus"
	GetRoundNumberProcedure       = "/" + ServiceName + "/GetRoundNumber"
	GetLastWinningNumberProcedure = "/" + ServiceName + "/GetLastWinningNumber"
	PlaceBetProcedure             = "/" + ServiceName + "/PlaceBet"
	GetFaucetChallengeProcedure   = "/" + ServiceName + "/GetFaucetChallenge"
	SendFaucetRequestProcedure    = "/" + ServiceName + "/SendFaucetRequest"
	GetBalanceProcedure           = "/" + ServiceName + "/GetBalance"
)

type ChainRequest struct {
	ChainID string `json:"chainId"`
}

type GetRoundStatusResponse struct {
	Active bool `json:"active"`
}

type GetRoundNumberResponse struct {
	Number uint64 `json:"number"`
}

// GetLastWinningNumberResponse has a nil Number before the first round settled.
type GetLastWinningNumberResponse struct {
	Number *int64 `json:"number,omitempty"`
}

// PlaceBetRequest is signed by the better's key over SigningMessage.
type PlaceBetRequest struct {
	ChainID   string         `json:"chainId"`
	RequestID string         `json:"requestId"`
	Address   wallet.Address `json:"address"`
	PublicKey []byte         `json:"publicKey"`
	Number    int64          `json:"number"`
	Amount    uint64         `json:"amount"`
	Signature []byte         `json:"signature"`
}

type PlaceBetResponse struct {
	TransactionID string `json:"transactionId"`
}

type GetFaucetChallengeRequest struct {
	Address wallet.Address `json:"address"`
}

// FaucetRequest is sent back to the faucet once Nonce solves the challenge.
type FaucetRequest struct {
	Address               wallet.Address `json:"address"`
	AccessManaPledgeID    string         `json:"accessManaPledgeId,omitempty"`
	ConsensusManaPledgeID string         `json:"consensusManaPledgeId,omitempty"`
	Nonce                 uint64         `json:"nonce"`
}

// FaucetChallenge carries the unsolved request and the buffer the nonce is
// searched against.
type FaucetChallenge struct {
	Request   FaucetRequest `json:"faucetRequest"`
	PoWBuffer []byte        `json:"powBuffer"`
}

type SendFaucetRequestResponse struct {
	ID string `json:"id"`
}

type GetBalanceRequest struct {
	Address wallet.Address `json:"address"`
	AssetID string         `json:"assetId"`
}

type GetBalanceResponse struct {
	Amount uint64 `json:"amount"`
}
