package transport

import (
	"context"
	"crypto/ed25519"
	"errors"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mcdev12/fairroulette/go/internal/wallet"
)

var ErrBadSignature = errors.New("bet signature does not match address")

// Service is the server side of the roulette RPC service. The simulator and
// tests implement it; the client never does.
type Service interface {
	GetRoundStatus(context.Context, *connect.Request[ChainRequest]) (*connect.Response[GetRoundStatusResponse], error)
	GetRoundNumber(context.Context, *connect.Request[ChainRequest]) (*connect.Response[GetRoundNumberResponse], error)
	GetLastWinningNumber(context.Context, *connect.Request[ChainRequest]) (*connect.Response[GetLastWinningNumberResponse], error)
	PlaceBet(context.Context, *connect.Request[PlaceBetRequest]) (*connect.Response[PlaceBetResponse], error)
	GetFaucetChallenge(context.Context, *connect.Request[GetFaucetChallengeRequest]) (*connect.Response[FaucetChallenge], error)
	SendFaucetRequest(context.Context, *connect.Request[FaucetRequest]) (*connect.Response[SendFaucetRequestResponse], error)
	GetBalance(context.Context, *connect.Request[GetBalanceRequest]) (*connect.Response[GetBalanceResponse], error)
}

// NewHandler returns the mount path and handler for svc.
func NewHandler(svc Service, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetRoundStatusProcedure, connect.NewUnaryHandler(GetRoundStatusProcedure, svc.GetRoundStatus, opts...))
	mux.Handle(GetRoundNumberProcedure, connect.NewUnaryHandler(GetRoundNumberProcedure, svc.GetRoundNumber, opts...))
	mux.Handle(GetLastWinningNumberProcedure, connect.NewUnaryHandler(GetLastWinningNumberProcedure, svc.GetLastWinningNumber, opts...))
	mux.Handle(PlaceBetProcedure, connect.NewUnaryHandler(PlaceBetProcedure, svc.PlaceBet, opts...))
	mux.Handle(GetFaucetChallengeProcedure, connect.NewUnaryHandler(GetFaucetChallengeProcedure, svc.GetFaucetChallenge, opts...))
	mux.Handle(SendFaucetRequestProcedure, connect.NewUnaryHandler(SendFaucetRequestProcedure, svc.SendFaucetRequest, opts...))
	mux.Handle(GetBalanceProcedure, connect.NewUnaryHandler(GetBalanceProcedure, svc.GetBalance, opts...))
	return "/" + ServiceName + "/", mux
}

// VerifyBet checks that the request was signed by the key behind its address.
func VerifyBet(req *PlaceBetRequest) error {
	if len(req.PublicKey) != ed25519.PublicKeySize {
		return ErrBadSignature
	}
	pub := ed25519.PublicKey(req.PublicKey)
	if wallet.AddressFromPublicKey(pub) != req.Address {
		return ErrBadSignature
	}
	if !ed25519.Verify(pub, req.SigningMessage(), req.Signature) {
		return ErrBadSignature
	}
	return nil
}
