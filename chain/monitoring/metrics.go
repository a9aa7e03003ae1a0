package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"aurora-chain/chain/assets"
	"aurora-chain/chain/config"
	"aurora-chain/chain/credit"
	"aurora-chain/chain/escrow"
	"aurora-chain/chain/pool"
	"aurora-chain/chain/types"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer exposes Prometheus gauges and a health/metrics HTTP surface
// over the ledger engines wired by chain/config.Bootstrap: asset supply,
// liquidity pool reserves, open order counts, escrow counts, and credit
// pool interest rates, in place of the teacher's validator/consensus/P2P
// gauges.
type MetricsServer struct {
	listenAddr  string
	metricsPath string
	healthPath  string

	registry *prometheus.Registry

	// Ledger metrics
	assetSupply      *prometheus.GaugeVec
	assetCount       prometheus.Gauge
	poolReserveA     *prometheus.GaugeVec
	poolReserveB     *prometheus.GaugeVec
	poolCount        prometheus.Gauge
	openOrders       prometheus.Gauge
	escrowCount      prometheus.Gauge
	creditRate       *prometheus.GaugeVec
	creditUtilized   *prometheus.GaugeVec
	maintenanceTicks prometheus.Counter

	// System metrics
	memoryUsage    prometheus.Gauge
	goroutineCount prometheus.Gauge

	healthStatus  *HealthChecker
	dataCollector *DataCollector

	server *http.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex

	running   bool
	startTime time.Time
}

// HealthChecker monitors process-level health; the checks themselves are
// domain-agnostic (memory/goroutines) and unchanged from the teacher.
type HealthChecker struct {
	checks        map[string]HealthCheck
	overallStatus HealthStatus
	lastCheck     time.Time
	checkInterval time.Duration
	mu            sync.RWMutex
}

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name      string                                 `json:"name"`
	Status    HealthStatus                           `json:"status"`
	Message   string                                 `json:"message"`
	LastCheck time.Time                               `json:"lastCheck"`
	Duration  time.Duration                           `json:"duration"`
	Critical  bool                                    `json:"critical"`
	CheckFunc func() (HealthStatus, string, error) `json:"-"`
}

// HealthStatus represents health status.
type HealthStatus int

const (
	HealthStatusHealthy HealthStatus = iota
	HealthStatusWarning
	HealthStatusCritical
	HealthStatusUnknown
)

// DataCollector wraps the ledger interface and caches what it last
// observed, the way the teacher's DataCollector cached block/validator/
// network snapshots between scrape intervals.
type DataCollector struct {
	ledger LedgerInterface

	lastSnapshot *LedgerSnapshot

	ledgerMetricsInterval time.Duration
	systemMetricsInterval time.Duration

	mu sync.RWMutex
}

// LedgerInterface is the narrow surface MetricsServer needs from the
// running engines, mirroring the teacher's BlockchainInterface/
// ConsensusInterface/NetworkInterface split: monitoring depends on this
// interface, not on chain/config's concrete Engines, so a test can supply a
// fake collector without bootstrapping a real genesis.
type LedgerInterface interface {
	AssetSupply() map[types.AssetSymbol]types.Amount
	PoolReserves() []PoolReserve
	OpenOrders() int
	EscrowCount() int
	CreditRates() []CreditRate
}

// PoolReserve is one liquidity pool's current reserves, for the
// per-pool gauge pair.
type PoolReserve struct {
	SymbolA, SymbolB types.AssetSymbol
	BalanceA, BalanceB types.Amount
}

// CreditRate is one credit pool's current utilization-scaled interest rate.
type CreditRate struct {
	BaseSymbol, CreditSymbol types.AssetSymbol
	Rate                     float64
	Utilization              float64
}

// EngineCollector adapts *config.Engines (the concrete wiring produced by
// Bootstrap) to LedgerInterface.
type EngineCollector struct {
	eng *config.Engines
}

// NewEngineCollector wraps the engines a node bootstrapped from genesis.
func NewEngineCollector(eng *config.Engines) *EngineCollector {
	return &EngineCollector{eng: eng}
}

func (c *EngineCollector) AssetSupply() map[types.AssetSymbol]types.Amount {
	out := make(map[types.AssetSymbol]types.Amount)
	c.eng.Assets.Range(func(a *assets.Object) bool {
		if d, err := c.eng.Assets.Dynamic(a.Symbol); err == nil {
			out[a.Symbol] = d.Total
		}
		return true
	})
	return out
}

func (c *EngineCollector) PoolReserves() []PoolReserve {
	var out []PoolReserve
	c.eng.Pools.Range(func(p *pool.Pool) bool {
		out = append(out, PoolReserve{
			SymbolA: p.SymbolA, SymbolB: p.SymbolB,
			BalanceA: p.BalanceA, BalanceB: p.BalanceB,
		})
		return true
	})
	return out
}

func (c *EngineCollector) OpenOrders() int {
	return c.eng.Limit.OpenOrders()
}

func (c *EngineCollector) EscrowCount() int {
	n := 0
	c.eng.Escrow.Range(func(*escrow.Escrow) bool { n++; return true })
	return n
}

func (c *EngineCollector) CreditRates() []CreditRate {
	var out []CreditRate
	c.eng.Credit.Range(func(p *credit.Pool) bool {
		util := 0.0
		if denom := float64(p.BaseBalance + p.BorrowedBalance); denom > 0 {
			util = float64(p.BorrowedBalance) / denom
		}
		out = append(out, CreditRate{
			BaseSymbol: p.BaseSymbol, CreditSymbol: p.CreditSymbol,
			Rate:        p.LastInterestRate,
			Utilization: util,
		})
		return true
	})
	return out
}

// LedgerSnapshot is a point-in-time capture of every ledger gauge's source
// data, refreshed once per scrape interval.
type LedgerSnapshot struct {
	Supply       map[types.AssetSymbol]types.Amount
	Pools        []PoolReserve
	OpenOrders   int
	EscrowCount  int
	CreditRates  []CreditRate
	CollectedAt  time.Time
}

// NewMetricsServer creates a new metrics server.
func NewMetricsServer(cfg *MetricsConfig, ledger LedgerInterface) *MetricsServer {
	ctx, cancel := context.WithCancel(context.Background())

	registry := prometheus.NewRegistry()

	ms := &MetricsServer{
		listenAddr:    cfg.ListenAddr,
		metricsPath:   cfg.MetricsPath,
		healthPath:    cfg.HealthPath,
		registry:      registry,
		ctx:           ctx,
		cancel:        cancel,
		startTime:     time.Now(),
		healthStatus:  NewHealthChecker(),
		dataCollector: NewDataCollector(ledger),
	}

	ms.initMetrics()
	ms.setupServer()

	return ms
}

// MetricsConfig defines metrics configuration.
type MetricsConfig struct {
	ListenAddr  string `json:"listenAddr"`
	MetricsPath string `json:"metricsPath"`
	HealthPath  string `json:"healthPath"`
}

// initMetrics initializes all Prometheus metrics.
func (ms *MetricsServer) initMetrics() {
	ms.assetSupply = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurora_asset_supply",
		Help: "Total supply of a registered asset, across every partition",
	}, []string{"symbol"})

	ms.assetCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_assets_registered",
		Help: "Number of assets registered",
	})

	ms.poolReserveA = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurora_pool_reserve_a",
		Help: "Liquidity pool reserve of the A side",
	}, []string{"symbol_a", "symbol_b"})

	ms.poolReserveB = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurora_pool_reserve_b",
		Help: "Liquidity pool reserve of the B side",
	}, []string{"symbol_a", "symbol_b"})

	ms.poolCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_pools_active",
		Help: "Number of liquidity pools",
	})

	ms.openOrders = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_open_orders",
		Help: "Number of resting limit orders across every book",
	})

	ms.escrowCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_escrows_active",
		Help: "Number of live escrows",
	})

	ms.creditRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurora_credit_pool_interest_rate",
		Help: "Current utilization-scaled interest rate of a credit pool",
	}, []string{"base_symbol", "credit_symbol"})

	ms.creditUtilized = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aurora_credit_pool_utilization",
		Help: "Current utilization of a credit pool",
	}, []string{"base_symbol", "credit_symbol"})

	ms.maintenanceTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "aurora_maintenance_ticks_total",
		Help: "Total number of scheduled maintenance sweeps run",
	})

	ms.memoryUsage = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_memory_usage_bytes",
		Help: "Memory usage in bytes",
	})

	ms.goroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "aurora_goroutines",
		Help: "Number of goroutines",
	})

	for _, metric := range []prometheus.Collector{
		ms.assetSupply, ms.assetCount,
		ms.poolReserveA, ms.poolReserveB, ms.poolCount,
		ms.openOrders, ms.escrowCount,
		ms.creditRate, ms.creditUtilized,
		ms.maintenanceTicks,
		ms.memoryUsage, ms.goroutineCount,
	} {
		ms.registry.MustRegister(metric)
	}
}

// setupServer configures the HTTP server.
func (ms *MetricsServer) setupServer() {
	router := mux.NewRouter()

	router.Path(ms.metricsPath).Handler(promhttp.HandlerFor(ms.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	router.PathPrefix(ms.healthPath).HandlerFunc(ms.healthHandler)
	router.PathPrefix("/api/metrics/ledger").HandlerFunc(ms.ledgerMetricsHandler)

	ms.server = &http.Server{
		Addr:    ms.listenAddr,
		Handler: router,
	}
}

// Start starts the metrics server.
func (ms *MetricsServer) Start() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.running {
		return fmt.Errorf("metrics server already running")
	}

	ms.healthStatus.Start()

	ms.wg.Add(1)
	go ms.collectMetrics()

	ms.wg.Add(1)
	go func() {
		defer ms.wg.Done()
		log.Printf("📊 metrics server listening on %s", ms.listenAddr)
		if err := ms.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("⚠️  metrics server error: %v", err)
		}
	}()

	ms.running = true
	return nil
}

// Stop stops the metrics server.
func (ms *MetricsServer) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.running {
		return
	}

	ms.cancel()

	if ms.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ms.server.Shutdown(ctx)
	}

	ms.healthStatus.Stop()
	ms.wg.Wait()

	ms.running = false
	log.Printf("📊 metrics server stopped")
}

// RecordMaintenanceTick records that RunMaintenance completed for a block.
func (ms *MetricsServer) RecordMaintenanceTick() {
	ms.maintenanceTicks.Inc()
}

func (ms *MetricsServer) collectMetrics() {
	defer ms.wg.Done()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			return
		case <-ticker.C:
			ms.updateMetrics()
		}
	}
}

func (ms *MetricsServer) updateMetrics() {
	ms.updateSystemMetrics()
	if ms.dataCollector.ledger != nil {
		ms.updateLedgerMetrics()
	}
}

func (ms *MetricsServer) updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ms.memoryUsage.Set(float64(m.Alloc))
	ms.goroutineCount.Set(float64(runtime.NumGoroutine()))
}

func (ms *MetricsServer) updateLedgerMetrics() {
	snap := ms.dataCollector.Collect()

	ms.assetCount.Set(float64(len(snap.Supply)))
	for symbol, total := range snap.Supply {
		ms.assetSupply.WithLabelValues(string(symbol)).Set(float64(total))
	}

	ms.poolCount.Set(float64(len(snap.Pools)))
	for _, p := range snap.Pools {
		ms.poolReserveA.WithLabelValues(string(p.SymbolA), string(p.SymbolB)).Set(float64(p.BalanceA))
		ms.poolReserveB.WithLabelValues(string(p.SymbolA), string(p.SymbolB)).Set(float64(p.BalanceB))
	}

	ms.openOrders.Set(float64(snap.OpenOrders))
	ms.escrowCount.Set(float64(snap.EscrowCount))

	for _, c := range snap.CreditRates {
		ms.creditRate.WithLabelValues(string(c.BaseSymbol), string(c.CreditSymbol)).Set(c.Rate)
		ms.creditUtilized.WithLabelValues(string(c.BaseSymbol), string(c.CreditSymbol)).Set(c.Utilization)
	}
}

// HTTP handlers.
func (ms *MetricsServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := ms.healthStatus.GetOverallHealth()

	status := http.StatusOK
	if health.Status == HealthStatusCritical {
		status = http.StatusServiceUnavailable
	} else if health.Status == HealthStatusWarning {
		status = http.StatusPartialContent
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(health)
}

func (ms *MetricsServer) ledgerMetricsHandler(w http.ResponseWriter, r *http.Request) {
	snap := ms.dataCollector.Collect()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker() *HealthChecker {
	hc := &HealthChecker{
		checks:        make(map[string]HealthCheck),
		checkInterval: 30 * time.Second,
	}
	hc.addDefaultChecks()
	return hc
}

func (hc *HealthChecker) addDefaultChecks() {
	hc.checks["memory"] = HealthCheck{
		Name:      "Memory Usage",
		Critical:  true,
		CheckFunc: hc.checkMemoryUsage,
	}
	hc.checks["goroutines"] = HealthCheck{
		Name:      "Goroutine Count",
		Critical:  false,
		CheckFunc: hc.checkGoroutineCount,
	}
}

func (hc *HealthChecker) checkMemoryUsage() (HealthStatus, string, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usagePercent := float64(m.Alloc) / float64(m.Sys) * 100

	if usagePercent > 90 {
		return HealthStatusCritical, fmt.Sprintf("memory usage critical: %.1f%%", usagePercent), nil
	} else if usagePercent > 80 {
		return HealthStatusWarning, fmt.Sprintf("memory usage high: %.1f%%", usagePercent), nil
	}
	return HealthStatusHealthy, fmt.Sprintf("memory usage normal: %.1f%%", usagePercent), nil
}

func (hc *HealthChecker) checkGoroutineCount() (HealthStatus, string, error) {
	count := runtime.NumGoroutine()
	if count > 10000 {
		return HealthStatusWarning, fmt.Sprintf("high goroutine count: %d", count), nil
	}
	return HealthStatusHealthy, fmt.Sprintf("goroutine count normal: %d", count), nil
}

func (hc *HealthChecker) Start() {}
func (hc *HealthChecker) Stop()  {}

func (hc *HealthChecker) GetOverallHealth() *HealthCheck {
	worst := HealthStatusHealthy
	message := "all systems operational"

	hc.mu.RLock()
	defer hc.mu.RUnlock()
	for _, check := range hc.checks {
		if check.CheckFunc == nil {
			continue
		}
		status, msg, err := check.CheckFunc()
		if err != nil {
			continue
		}
		if status > worst {
			worst = status
			message = msg
		}
	}
	return &HealthCheck{Name: "Overall Health", Status: worst, Message: message, LastCheck: time.Now()}
}

// NewDataCollector creates a new data collector over a ledger source.
func NewDataCollector(ledger LedgerInterface) *DataCollector {
	return &DataCollector{
		ledger:                ledger,
		ledgerMetricsInterval: 10 * time.Second,
		systemMetricsInterval: 5 * time.Second,
	}
}

// Collect refreshes and returns the latest ledger snapshot.
func (dc *DataCollector) Collect() *LedgerSnapshot {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	snap := &LedgerSnapshot{
		Supply:      dc.ledger.AssetSupply(),
		Pools:       dc.ledger.PoolReserves(),
		OpenOrders:  dc.ledger.OpenOrders(),
		EscrowCount: dc.ledger.EscrowCount(),
		CreditRates: dc.ledger.CreditRates(),
		CollectedAt: time.Now(),
	}
	dc.lastSnapshot = snap
	return snap
}
