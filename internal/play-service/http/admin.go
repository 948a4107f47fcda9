package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/dto"
)

// requireAdmin exige o token compartilhado do painel administrativo
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != s.adminToken {
			writeError(w, http.StatusUnauthorized, "admin token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) adminPayouts(w http.ResponseWriter, r *http.Request) {
	s.adminBatch(w, r, s.cat.SetPayouts)
}

func (s *Server) adminMinStakes(w http.ResponseWriter, r *http.Request) {
	s.adminBatch(w, r, s.cat.SetMinStakes)
}

func (s *Server) adminMaxStakes(w http.ResponseWriter, r *http.Request) {
	s.adminBatch(w, r, s.cat.SetMaxStakes)
}

// adminBatch aplica um lote (categoria, valor) atômico no catálogo e persiste
// os parâmetros resultantes
func (s *Server) adminBatch(w http.ResponseWriter, r *http.Request, apply func([]uint8, []uint64) error) {
	var req dto.AdminBatchUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := apply(req.Categories, req.Values); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.repo.SaveCategoryParams(r.Context(), s.repo.DB(), s.cat.Params()); err != nil {
		s.log.Error("persist category params", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "params applied but not persisted")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"APPLIED"}`))
}

func (s *Server) adminPause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, true)
}

func (s *Server) adminUnpause(w http.ResponseWriter, r *http.Request) {
	s.setPaused(w, r, false)
}

func (s *Server) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	if err := s.repo.SetPaused(r.Context(), s.repo.DB(), paused); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.log.Info("engine pause flag", zap.Bool("paused", paused))
	writeJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}

func (s *Server) adminStaleness(w http.ResponseWriter, r *http.Request) {
	var req dto.StalenessUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.AllowedMs <= 0 {
		writeError(w, http.StatusBadRequest, "allowed_ms must be positive")
		return
	}
	if err := s.repo.SetStalenessMs(r.Context(), s.repo.DB(), req.AllowedMs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.ora.SetStaleness(time.Duration(req.AllowedMs) * time.Millisecond)
	writeJSON(w, http.StatusOK, map[string]int64{"allowed_ms": req.AllowedMs})
}

// adminTreasuryWithdraw paga a margem acumulada e zera a tesouraria, atômico
func (s *Server) adminTreasuryWithdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.TreasuryWithdrawRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	to := req.To
	if to == "" {
		to = s.treasuryAccount
	}
	ctx := r.Context()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	counters, err := s.repo.LoadCounters(ctx, tx, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if counters.TreasuryCents == 0 {
		writeError(w, http.StatusConflict, "treasury empty")
		return
	}

	amount := counters.TreasuryCents
	if err := s.cust.Transfer(ctx, to, amount, "treasury:"+uuid.NewString()); err != nil {
		writeError(w, http.StatusConflict, "custody transfer failed: "+err.Error())
		return
	}

	counters.TreasuryCents = 0
	if err := s.repo.SaveCounters(ctx, tx, counters); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info("treasury withdrawn", zap.Uint64("amount_cents", amount), zap.String("to", to))
	writeJSON(w, http.StatusOK, dto.TreasuryResponse{PaidCents: amount, To: to})
}

// adminEmergencyWithdraw devolve fundos enviados por engano à conta da casa
func (s *Server) adminEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.EmergencyWithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.To == "" || req.AmountCents == 0 {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := s.cust.Transfer(r.Context(), req.To, req.AmountCents, "emergency:"+uuid.NewString()); err != nil {
		writeError(w, http.StatusConflict, "custody transfer failed: "+err.Error())
		return
	}
	s.log.Warn("emergency withdraw", zap.Uint64("amount_cents", req.AmountCents), zap.String("to", req.To))
	writeJSON(w, http.StatusOK, dto.TreasuryResponse{PaidCents: req.AmountCents, To: req.To})
}
