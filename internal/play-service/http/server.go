package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/roulette-settlement-poc/internal/play-service/cache"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/catalog"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/claims"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/custody"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/dto"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/engine"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/oracle"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/repo"
	"github.com/radieske/roulette-settlement-poc/internal/play-service/ws"
	"github.com/radieske/roulette-settlement-poc/pkg/contracts/events"
)

// Publisher emite os eventos de liquidação e saque (best-effort)
type Publisher interface {
	PublishRoundSettled(ctx context.Context, e events.RoundSettled) error
	PublishRoundClaimed(ctx context.Context, e events.RoundClaimed) error
}

// Server expõe a superfície de jogo e administração do motor de liquidação
type Server struct {
	log   *zap.Logger
	repo  *repo.Postgres
	cat   *catalog.Catalog
	eng   *engine.Engine
	ora   *oracle.Adapter
	cust  *custody.Client
	publ  Publisher
	cache *cache.RoundCache
	hub   *ws.Hub

	adminToken      string
	treasuryAccount string

	// callbacks de métricas (ligadas no main)
	OnPlayed     func(stake, reward, margin uint64)
	OnPlayFailed func(reason string)
	OnClaimPaid  func(amount uint64)
}

func NewServer(
	log *zap.Logger,
	r *repo.Postgres,
	cat *catalog.Catalog,
	eng *engine.Engine,
	ora *oracle.Adapter,
	cust *custody.Client,
	publ Publisher,
	rc *cache.RoundCache,
	hub *ws.Hub,
	adminToken, treasuryAccount string,
) *Server {
	return &Server{
		log: log, repo: r, cat: cat, eng: eng, ora: ora, cust: cust,
		publ: publ, cache: rc, hub: hub,
		adminToken: adminToken, treasuryAccount: treasuryAccount,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/v1/play", s.play)
	r.Get("/v1/rounds/{user}/{epoch}", s.getRound)
	r.Get("/v1/claims/{user}", s.getTotalClaimable)
	r.Post("/v1/claims/{user}", s.claimAll)
	r.Post("/v1/claims/{user}/{epoch}", s.claimOne)
	r.Get("/v1/catalog", s.getCatalog)
	if s.hub != nil {
		r.Get("/v1/ws", s.hub.HandleWS)
	}

	r.Route("/v1/admin", func(ar chi.Router) {
		ar.Use(s.requireAdmin)
		ar.Post("/payouts", s.adminPayouts)
		ar.Post("/min-stakes", s.adminMinStakes)
		ar.Post("/max-stakes", s.adminMaxStakes)
		ar.Post("/pause", s.adminPause)
		ar.Post("/unpause", s.adminUnpause)
		ar.Post("/staleness", s.adminStaleness)
		ar.Post("/treasury/withdraw", s.adminTreasuryWithdraw)
		ar.Post("/emergency-withdraw", s.adminEmergencyWithdraw)
	})

	return r
}

// play executa a jogada atômica: abre rodada, valida e acumula o lote,
// resolve contra o oráculo e calcula o prêmio — tudo numa transação.
// Qualquer falha desfaz tudo: erro de oráculo aborta antes de mover fundos,
// falha de custódia não deixa aposta registrada.
func (s *Server) play(w http.ResponseWriter, r *http.Request) {
	var req dto.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	ctx := r.Context()

	paused, err := s.repo.Paused(ctx, s.repo.DB())
	if err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	if paused {
		s.failMsg(w, "paused", http.StatusServiceUnavailable, "engine paused")
		return
	}

	bets := make([]catalog.Bet, 0, len(req.Bets))
	for _, b := range req.Bets {
		bets = append(bets, catalog.Bet{
			Category:       b.Category,
			Differentiator: b.Differentiator,
			Outcomes:       b.Outcomes,
			StakeCents:     b.StakeCents,
		})
	}

	// rejeita o lote inteiro antes de abrir transação
	if err := s.cat.ValidateBatch(bets); err != nil {
		s.failMsg(w, "validation", http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	defer tx.Rollback()

	counters, err := s.repo.LoadCounters(ctx, tx, true)
	if err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}

	epoch, err := s.repo.NextEpoch(ctx, tx, req.UserID)
	if err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}

	round := s.eng.OpenRound(req.UserID, epoch, &counters)

	// oráculo antes de qualquer movimentação de fundos
	hwm, err := s.repo.OracleHWM(ctx, tx, true)
	if err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	outcome, newHWM, err := s.ora.ResolveOutcome(ctx, hwm)
	if err != nil {
		if errors.Is(err, oracle.ErrStaleData) || errors.Is(err, oracle.ErrNonMonotonicRound) {
			s.failMsg(w, "oracle", http.StatusConflict, err.Error())
			return
		}
		s.fail(w, "oracle", http.StatusBadGateway, err)
		return
	}
	if err := s.repo.SetOracleHWM(ctx, tx, newHWM); err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}

	ref := "play:" + req.UserID + ":" + strconv.FormatUint(epoch, 10)
	err = s.eng.PlaceBets(ctx, round, bets, func(ctx context.Context, total uint64) error {
		return s.cust.TransferFrom(ctx, req.UserID, total, ref)
	}, &counters)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrCustodyTransfer):
			s.failMsg(w, "custody", http.StatusConflict, err.Error())
		case errors.Is(err, engine.ErrOverflow):
			s.failMsg(w, "overflow", http.StatusUnprocessableEntity, err.Error())
		default:
			s.failMsg(w, "validation", http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := s.eng.Resolve(round, outcome); err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	if err := s.eng.ComputeRewards(round, &counters); err != nil {
		if errors.Is(err, engine.ErrOverflow) {
			s.failMsg(w, "overflow", http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}

	if err := s.repo.InsertRound(ctx, tx, round); err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	if err := s.repo.SaveCounters(ctx, tx, counters); err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}
	if err := tx.Commit(); err != nil {
		s.fail(w, "internal", http.StatusInternalServerError, err)
		return
	}

	if s.OnPlayed != nil {
		s.OnPlayed(round.TotalStakedCents, round.TotalRewardCents, round.TreasuryMarginCents)
	}

	// pós-commit: evento e cache são best-effort
	if s.publ != nil {
		_ = s.publ.PublishRoundSettled(ctx, events.RoundSettled{
			RoundID:             round.RoundID,
			UserID:              round.UserID,
			Epoch:               round.Epoch,
			WinningOutcome:      round.WinningOutcome,
			BetCount:            len(round.Bets),
			TotalStakedCents:    round.TotalStakedCents,
			TotalRewardCents:    round.TotalRewardCents,
			TreasuryMarginCents: round.TreasuryMarginCents,
			OracleRoundID:       newHWM,
		})
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, round.UserID, round.Epoch, roundStatus(round))
	}

	writeJSON(w, http.StatusOK, dto.PlayResponse{
		RoundID:             round.RoundID,
		Epoch:               round.Epoch,
		WinningOutcome:      round.WinningOutcome,
		TotalStakedCents:    round.TotalStakedCents,
		TotalRewardCents:    round.TotalRewardCents,
		TreasuryMarginCents: round.TreasuryMarginCents,
		Phase:               round.Phase.String(),
	})
}

func (s *Server) getRound(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	epoch, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad epoch")
		return
	}

	ctx := r.Context()
	if s.cache != nil {
		var fromCache dto.RoundStatus
		if ok, _ := s.cache.Get(ctx, user, epoch, &fromCache); ok {
			writeJSON(w, http.StatusOK, fromCache)
			return
		}
	}

	round, err := s.repo.GetRound(ctx, s.repo.DB(), user, epoch, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if round == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	st := roundStatus(round)
	if s.cache != nil {
		_ = s.cache.Set(ctx, user, epoch, st)
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) getTotalClaimable(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	ctx := r.Context()

	epochSeq, checkpoint, err := s.repo.UserState(ctx, s.repo.DB(), user, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ok, amount, err := claims.TotalClaimable(checkpoint, epochSeq, func(ep uint64) (*engine.Round, error) {
		return s.repo.GetRound(ctx, s.repo.DB(), user, ep, false)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TotalClaimableResponse{
		UserID:       user,
		Checkpoint:   checkpoint,
		CurrentEpoch: epochSeq,
		Claimable:    ok,
		AmountCents:  amount,
	})
}

// claimOne paga prêmio ou reembolso de um epoch específico, no máximo uma vez
func (s *Server) claimOne(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	epoch, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad epoch")
		return
	}
	ctx := r.Context()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	round, err := s.repo.GetRound(ctx, tx, user, epoch, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if round == nil {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	amount, kind, err := claims.Settle(round)
	if err != nil {
		switch {
		case errors.Is(err, claims.ErrAlreadyClaimed), errors.Is(err, claims.ErrNotClaimableOrRefundable):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// transferência custodial única; falha desfaz o claim inteiro
	ref := "claim:" + user + ":" + strconv.FormatUint(epoch, 10)
	if err := s.cust.Transfer(ctx, user, amount, ref); err != nil {
		writeError(w, http.StatusConflict, "custody transfer failed: "+err.Error())
		return
	}
	if err := s.repo.UpdateRoundPhase(ctx, tx, user, epoch, round.Phase); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.OnClaimPaid != nil {
		s.OnClaimPaid(amount)
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, user, epoch)
	}
	if s.publ != nil {
		_ = s.publ.PublishRoundClaimed(ctx, events.RoundClaimed{
			UserID: user, FromEpoch: epoch, ToEpoch: epoch,
			PaidCents: amount, Kind: string(kind), RoundCount: 1,
		})
	}

	writeJSON(w, http.StatusOK, dto.ClaimResponse{
		UserID: user, PaidCents: amount, Kind: string(kind),
		FromEpoch: epoch, ToEpoch: epoch, RoundCount: 1,
	})
}

// claimAll liquida todos os epochs acima do checkpoint numa transferência só
// e avança o checkpoint — epochs abaixo dele nunca são revisitados
func (s *Server) claimAll(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	ctx := r.Context()

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer tx.Rollback()

	epochSeq, checkpoint, err := s.repo.UserState(ctx, tx, user, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total, touched, err := claims.SettleAll(checkpoint, epochSeq, func(ep uint64) (*engine.Round, error) {
		return s.repo.GetRound(ctx, tx, user, ep, true)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if total > 0 {
		ref := "claim-all:" + user + ":" + strconv.FormatUint(epochSeq, 10)
		if err := s.cust.Transfer(ctx, user, total, ref); err != nil {
			writeError(w, http.StatusConflict, "custody transfer failed: "+err.Error())
			return
		}
	}
	for _, round := range touched {
		if err := s.repo.UpdateRoundPhase(ctx, tx, user, round.Epoch, round.Phase); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if epochSeq > checkpoint {
		if err := s.repo.AdvanceCheckpoint(ctx, tx, user, epochSeq); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if total > 0 && s.OnClaimPaid != nil {
		s.OnClaimPaid(total)
	}
	for _, round := range touched {
		if s.cache != nil {
			_ = s.cache.Invalidate(ctx, user, round.Epoch)
		}
	}
	if total > 0 && s.publ != nil {
		_ = s.publ.PublishRoundClaimed(ctx, events.RoundClaimed{
			UserID: user, FromEpoch: checkpoint + 1, ToEpoch: epochSeq,
			PaidCents: total, Kind: "BULK", RoundCount: len(touched),
		})
	}

	writeJSON(w, http.StatusOK, dto.ClaimResponse{
		UserID: user, PaidCents: total, Kind: "BULK",
		FromEpoch: checkpoint + 1, ToEpoch: epochSeq, RoundCount: len(touched),
	})
}

func (s *Server) getCatalog(w http.ResponseWriter, r *http.Request) {
	cats := s.cat.Categories()
	out := make([]dto.CatalogEntry, 0, len(cats))
	for i, c := range cats {
		out = append(out, dto.CatalogEntry{
			Category:       uint8(i),
			Name:           c.Name,
			OutcomeCount:   c.OutcomeCount,
			Multiplier:     c.Multiplier,
			Differentiator: len(c.Differentiators),
			MinStakeCents:  c.MinStakeCents,
			MaxStakeCents:  c.MaxStakeCents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// roundStatus monta a visão de consulta com os predicados de claim
func roundStatus(round *engine.Round) dto.RoundStatus {
	ok, amount := claims.Claimable(round)
	return dto.RoundStatus{
		RoundID:             round.RoundID,
		UserID:              round.UserID,
		Epoch:               round.Epoch,
		Phase:               round.Phase.String(),
		WinningOutcome:      round.WinningOutcome,
		BetCount:            len(round.Bets),
		TotalStakedCents:    round.TotalStakedCents,
		TotalRewardCents:    round.TotalRewardCents,
		TreasuryMarginCents: round.TreasuryMarginCents,
		Claimable:           ok,
		ClaimableCents:      amount,
		Refundable:          claims.Refundable(round),
	}
}

func (s *Server) fail(w http.ResponseWriter, reason string, status int, err error) {
	s.log.Warn("play failed", zap.String("reason", reason), zap.Error(err))
	if s.OnPlayFailed != nil {
		s.OnPlayFailed(reason)
	}
	writeError(w, status, err.Error())
}

func (s *Server) failMsg(w http.ResponseWriter, reason string, status int, msg string) {
	if s.OnPlayFailed != nil {
		s.OnPlayFailed(reason)
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
