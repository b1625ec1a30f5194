// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package stubbackend is an in-memory implementation of the backend HTTP
// API. It backs the package tests and the winnertrade-stub command, which
// lets the shell run without the real trading engine.
package stubbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/wingedpig/winnertrade/internal/logging"
	"github.com/wingedpig/winnertrade/pkg/client"
)

// Mask is returned in place of a stored secret.
const Mask = "********"

var log = logging.Module("stubbackend")

// fault is a forced response for one path.
type fault struct {
	status int
	detail string
}

// Backend holds the stub's state. The zero value is not usable; call New.
type Backend struct {
	mu             sync.Mutex
	cfg            *client.AppConfig
	configPath     string
	validSecret    string
	stats          client.Stats
	positions      []client.Position
	tickers        map[string]client.Ticker
	balance        decimal.Decimal
	logs           map[client.LogKind][]string
	engineRunning  bool
	engineInterval int
	faults         map[string]fault
	delays         map[string]time.Duration
	hits           map[string]int
}

// New creates an empty backend: no configuration stored, engine idle.
func New() *Backend {
	return &Backend{
		configPath:     "/tmp/winnertrade/config.json",
		tickers:        map[string]client.Ticker{},
		balance:        decimal.NewFromInt(1000),
		logs:           map[client.LogKind][]string{},
		engineInterval: client.DefaultEngineInterval,
		faults:         map[string]fault{},
		delays:         map[string]time.Duration{},
		hits:           map[string]int{},
	}
}

// Handler returns the HTTP API.
func (b *Backend) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.Use(recoverPanics)
	r.Use(b.intercept)

	r.HandleFunc("/health", b.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", b.getConfig).Methods(http.MethodGet)
	api.HandleFunc("/config", b.putConfig).Methods(http.MethodPut)
	api.HandleFunc("/config/path", b.configPathInfo).Methods(http.MethodGet)
	api.HandleFunc("/config/test-connection", b.testConnection).Methods(http.MethodPost)

	api.HandleFunc("/stats", b.getStats).Methods(http.MethodGet)
	api.HandleFunc("/positions", b.getPositions).Methods(http.MethodGet)
	api.HandleFunc("/ticker", b.getTicker).Methods(http.MethodGet)
	api.HandleFunc("/balance", b.getBalance).Methods(http.MethodGet)
	api.HandleFunc("/last_signal", b.getLastSignal).Methods(http.MethodGet)
	api.HandleFunc("/logs/{kind:trades|signals|trailing}", b.getLogs).Methods(http.MethodGet)

	api.HandleFunc("/engine/status", b.engineStatus).Methods(http.MethodGet)
	api.HandleFunc("/engine/start", b.engineStart).Methods(http.MethodPost)
	api.HandleFunc("/engine/stop", b.engineStop).Methods(http.MethodPost)

	return r
}

// ListenAndServe serves the API on addr until ctx is done.
func (b *Backend) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.WithField("addr", addr).Info("stub backend listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// intercept counts requests and applies injected faults and delays.
func (b *Backend) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		f, failing := b.faults[r.URL.Path]
		delay := b.delays[r.URL.Path]
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every request to path answer status with detail until Clear.
func (b *Backend) Fail(path string, status int, detail string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[path] = fault{status: status, detail: detail}
}

// Delay holds every request to path for d before answering.
func (b *Backend) Delay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[path] = d
}

// Clear removes faults and delays for path.
func (b *Backend) Clear(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.faults, path)
	delete(b.delays, path)
}

// Hits returns how many requests reached path.
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// SetConfig stores cfg as if it had been saved. Nil removes it.
func (b *Backend) SetConfig(cfg *client.AppConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cfg == nil {
		b.cfg = nil
		return
	}
	c := *cfg
	b.cfg = &c
}

// StoredConfig returns the stored configuration with its real secret.
func (b *Backend) StoredConfig() *client.AppConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cfg == nil {
		return nil
	}
	c := *b.cfg
	return &c
}

// SetValidSecret makes test-connection succeed only for this secret. Empty
// accepts any secret.
func (b *Backend) SetValidSecret(secret string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.validSecret = secret
}

// SetStats replaces the statistics snapshot.
func (b *Backend) SetStats(s client.Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = s
}

// SetPositions replaces the open positions.
func (b *Backend) SetPositions(p []client.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = append([]client.Position(nil), p...)
}

// SetTicker sets the price for symbol.
func (b *Backend) SetTicker(symbol string, t client.Ticker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickers[symbol] = t
}

// SetBalance sets the account balance.
func (b *Backend) SetBalance(d decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance = d
}

// AppendLog appends lines to one of the logs.
func (b *Backend) AppendLog(kind client.LogKind, lines ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logs[kind] = append(b.logs[kind], lines...)
}

// EngineRunning reports the engine state.
func (b *Backend) EngineRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.engineRunning
}

func (b *Backend) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (b *Backend) getConfig(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg == nil {
		writeDetail(w, http.StatusNotFound, "Config file not found. Complete first-time setup.")
		return
	}
	writeJSON(w, http.StatusOK, masked(b.cfg))
}

func (b *Backend) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg client.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid config: "+err.Error())
		return
	}
	if err := check(&cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid config: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg != nil {
		switch cfg.Exchange.APISecret {
		case "", Mask:
			cfg.Exchange.APISecret = b.cfg.Exchange.APISecret
		}
	}
	b.cfg = &cfg
	writeJSON(w, http.StatusOK, masked(b.cfg))
}

func (b *Backend) configPathInfo(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, client.ConfigPath{ConfigPath: b.configPath})
}

func (b *Backend) testConnection(w http.ResponseWriter, r *http.Request) {
	var cfg client.AppConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid config: "+err.Error())
		return
	}
	if err := check(&cfg); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid config: "+err.Error())
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.validSecret != "" && cfg.Exchange.APISecret != b.validSecret {
		writeDetail(w, http.StatusBadGateway, "Bağlantı testi başarısız: binance {\"code\":-2015,\"msg\":\"Invalid API-key, IP, or permissions for action.\"}")
		return
	}
	writeJSON(w, http.StatusOK, client.TestConnectionResult{
		OK:      true,
		Message: "Bağlantı başarılı.",
		Balance: decimal.NewNullDecimal(b.balance),
	})
}

func (b *Backend) getStats(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.stats)
}

func (b *Backend) getPositions(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	b.mu.Lock()
	defer b.mu.Unlock()

	out := []client.Position{}
	for _, p := range b.positions {
		if symbol == "" || p.Symbol == symbol {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getTicker(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = "BTC/USDT"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.tickers[symbol]
	if !ok {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("symbol not found: %s", symbol))
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (b *Backend) getBalance(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, client.Balance{Balance: b.balance})
}

func (b *Backend) getLastSignal(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out client.LastSignal
	if lines := b.logs[client.LogSignals]; len(lines) > 0 {
		raw := lines[len(lines)-1]
		out.Raw = &raw
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) getLogs(w http.ResponseWriter, r *http.Request) {
	kind := client.LogKind(mux.Vars(r)["kind"])
	limit := client.DefaultLogLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "limit must be an integer")
			return
		}
		limit = n
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	lines := b.logs[kind]
	if limit >= 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	writeJSON(w, http.StatusOK, append([]string{}, lines...))
}

func (b *Backend) engineStatus(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	status := client.EngineStatus{Running: b.engineRunning}
	if b.engineRunning {
		interval := b.engineInterval
		status.IntervalSeconds = &interval
	}
	writeJSON(w, http.StatusOK, status)
}

func (b *Backend) engineStart(w http.ResponseWriter, r *http.Request) {
	interval := client.DefaultEngineInterval
	if v := r.URL.Query().Get("interval_seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, "interval_seconds must be an integer")
			return
		}
		interval = n
	}
	interval = max(client.MinEngineInterval, min(client.MaxEngineInterval, interval))

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.engineRunning {
		writeDetail(w, http.StatusConflict, "Engine already running")
		return
	}
	b.engineRunning = true
	b.engineInterval = interval
	writeJSON(w, http.StatusOK, client.EngineStartResult{Status: "started", IntervalSeconds: interval})
}

func (b *Backend) engineStop(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.engineRunning {
		writeJSON(w, http.StatusOK, client.EngineStopResult{Status: "stopped", Message: "was not running"})
		return
	}
	b.engineRunning = false
	writeJSON(w, http.StatusOK, client.EngineStopResult{Status: "stopped"})
}

// check applies the backend's schema constraints.
func check(cfg *client.AppConfig) error {
	var problems []string
	if cfg.Exchange.Name == "" {
		problems = append(problems, "exchange.name is required")
	}
	if cfg.Account.FixedBalance.IsNegative() {
		problems = append(problems, "account.fixed_balance must be >= 0")
	}
	if cfg.Account.RiskPercent < 0.01 || cfg.Account.RiskPercent > 100 {
		problems = append(problems, "account.risk_percent must be in [0.01, 100]")
	}
	if cfg.Account.DailyRLimit > 0 {
		problems = append(problems, "account.daily_r_limit must be <= 0")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func masked(cfg *client.AppConfig) *client.AppConfig {
	c := *cfg
	if c.Exchange.APISecret != "" {
		c.Exchange.APISecret = Mask
	}
	return &c
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
