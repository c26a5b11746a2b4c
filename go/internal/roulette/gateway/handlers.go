package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/fairroulette/go/internal/roulette/session"
)

type placeBetRequest struct {
	Number int64  `json:"number"`
	Amount uint64 `json:"amount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes registers the socket, snapshot and action routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleConnection)
	mux.HandleFunc("/api/round", s.HandleGetRound)
	mux.HandleFunc("/api/wallet", s.HandleGetWallet)
	mux.HandleFunc("/api/bet", s.HandlePlaceBet)
	mux.HandleFunc("/api/bet/reset", s.HandleResetBetting)
	mux.HandleFunc("/api/faucet", s.HandleRequestFunds)
	if s.history != nil {
		mux.HandleFunc("/api/rounds/history", s.HandleGetHistory)
	}
}

func (s *Service) HandleConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.connectionManager.UpgradeConnection(w, r); err != nil {
		// the upgrader already wrote the HTTP error
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
	}
}

// HandleGetRound handles GET /api/round
func (s *Service) HandleGetRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.roundView())
}

// HandleGetWallet handles GET /api/wallet
func (s *Service) HandleGetWallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.walletView())
}

// HandlePlaceBet handles POST /api/bet. It stages and submits in one call.
func (s *Service) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req placeBetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := s.player.StageBet(req.Number, req.Amount); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	err := s.player.PlaceBet(r.Context())
	s.BroadcastRound()
	switch {
	case errors.Is(err, session.ErrNotInitialized):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrInvalidBet):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, s.roundView())
	}
}

// HandleResetBetting handles POST /api/bet/reset
func (s *Service) HandleResetBetting(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.player.ResetBetting()
	s.BroadcastRound()
	writeJSON(w, http.StatusOK, s.roundView())
}

// HandleRequestFunds handles POST /api/faucet. The proof of work takes a
// while, so the request runs in the background and the UI follows it through
// the wallet snapshot and notifications.
func (s *Service) HandleRequestFunds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.player.Initialized() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: session.ErrNotInitialized.Error()})
		return
	}
	s.requestFundsAsync()
	writeJSON(w, http.StatusAccepted, s.walletView())
}

// HandleGetHistory handles GET /api/rounds/history?limit=N
func (s *Service) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}

	rounds, err := s.history.RecentRounds(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to load round history")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load round history"})
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
