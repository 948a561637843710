// Package api exposes backtests and optimizations over HTTP.
package api

import (
	"coinlab/internal/engine"
	"coinlab/internal/logger"
	"coinlab/internal/optimizer"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Backtester interface {
	RunBacktest(ctx context.Context, req engine.BacktestRequest, opts ...engine.RunOption) (*engine.BacktestResult, error)
	Strategies() []string
}

type Optimizer interface {
	OptimizeCoin(ctx context.Context, req optimizer.CoinRequest) (*optimizer.CoinResult, error)
	OptimizeAllCoins(ctx context.Context, req optimizer.AllCoinsRequest) (*optimizer.AllCoinsResult, error)
	ListResults(ctx context.Context, f optimizer.Filter) ([]optimizer.Ranking, error)
}

type Server struct {
	backtester Backtester
	optimizer  Optimizer
	log        logger.Logger
	mux        *http.ServeMux
}

func NewServer(bt Backtester, opt Optimizer, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Server{
		backtester: bt,
		optimizer:  opt,
		log:        log,
		mux:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	s.mux.HandleFunc("POST /api/optimize", s.handleOptimize)
	s.mux.HandleFunc("POST /api/optimize/all", s.handleOptimizeAll)
	s.mux.HandleFunc("GET /api/optimizations", s.handleListOptimizations)
	s.mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		s.log.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(started)),
		)
	})
}
