package api

import (
	"coinlab/internal/engine"
	"coinlab/internal/optimizer"
	"coinlab/internal/pricefeed"
	"coinlab/internal/repository"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type backtestBody struct {
	engine.BacktestRequest
	Persist bool `json:"persist"`
}

type optimizeBody struct {
	Coin           string          `json:"coin"`
	Coins          []string        `json:"coins"`
	Strategies     []string        `json:"strategies"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	Days           int             `json:"days"`
	Persist        bool            `json:"persist"`
	TimeoutSeconds float64         `json:"timeout_seconds"`
	TopN           int             `json:"top_n"`
}

func (b optimizeBody) timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds * float64(time.Second))
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var body backtestBody
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.backtester.RunBacktest(r.Context(), body.BacktestRequest, engine.WithPersist(body.Persist))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var body optimizeBody
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.optimizer.OptimizeCoin(r.Context(), optimizer.CoinRequest{
		Coin:           body.Coin,
		Strategies:     body.Strategies,
		InitialCapital: body.InitialCapital,
		StartDate:      body.StartDate,
		EndDate:        body.EndDate,
		Days:           body.Days,
		Timeout:        body.timeout(),
		Persist:        body.Persist,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOptimizeAll(w http.ResponseWriter, r *http.Request) {
	var body optimizeBody
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.optimizer.OptimizeAllCoins(r.Context(), optimizer.AllCoinsRequest{
		Coins:          body.Coins,
		Strategies:     body.Strategies,
		InitialCapital: body.InitialCapital,
		StartDate:      body.StartDate,
		EndDate:        body.EndDate,
		Days:           body.Days,
		Timeout:        body.timeout(),
		Persist:        body.Persist,
		TopN:           body.TopN,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListOptimizations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := optimizer.Filter{
		Coin:     q.Get("coin"),
		Strategy: q.Get("strategy"),
		Limit:    50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		f.Limit = n
	}
	rankings, err := s.optimizer.ListResults(r.Context(), f)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rankings)
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backtester.Strategies())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrNoPrices), errors.Is(err, pricefeed.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrNoResultStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
