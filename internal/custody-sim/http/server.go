package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/custody-sim/dto"
	"github.com/radieske/roulette-settlement-poc/internal/custody-sim/repo"
)

// Repo define a interface de operações custodiais usadas pelo handler HTTP
type Repo interface {
	GetOrCreateAccount(ctx context.Context, userID string) (uint64, error)
	Deposit(ctx context.Context, userID string, amount uint64, externalRef string) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64, externalRef string) (string, error)
}

// Server expõe endpoints HTTP do simulador de custódia
type Server struct {
	log  *zap.Logger
	repo Repo

	OnTransfer func() // métricas (counter++)
}

// NewServer instancia o servidor HTTP de custódia
func NewServer(log *zap.Logger, repo Repo) *Server { return &Server{log: log, repo: repo} }

// Router retorna o mux HTTP com as rotas da API de custódia
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/custody/balance", s.balance)            // GET ?userId=...
	mux.HandleFunc("/custody/deposit", s.deposit)            // POST
	mux.HandleFunc("/custody/transfer-from", s.transferFrom) // POST (usuário -> casa)
	mux.HandleFunc("/custody/transfer", s.transfer)          // POST (casa -> usuário)
	return mux
}

// balance retorna (ou cria) a conta e saldo do usuário
func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	bal, err := s.repo.GetOrCreateAccount(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{UserID: userID, BalanceCents: bal})
}

// deposit credita saldo de teste na conta do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	bal, err := s.repo.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.BalanceResponse{UserID: req.UserID, BalanceCents: bal})
}

// transferFrom move o stake do usuário para a conta da casa
func (s *Server) transferFrom(w http.ResponseWriter, r *http.Request) {
	s.doTransfer(w, r)
}

// transfer paga prêmio/reembolso da casa para o usuário
func (s *Server) transfer(w http.ResponseWriter, r *http.Request) {
	s.doTransfer(w, r)
}

func (s *Server) doTransfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" || req.AmountCents == 0 || req.ExternalRef == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	id, err := s.repo.Transfer(r.Context(), req.From, req.To, req.AmountCents, req.ExternalRef)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if s.OnTransfer != nil {
		s.OnTransfer()
	}
	writeJSON(w, dto.TransferResponse{TransferID: id, Status: "DONE"})
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
