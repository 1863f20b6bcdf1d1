package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/config"
	"solana-curve-sniper/internal/decision"
	"solana-curve-sniper/internal/discovery"
	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/events"
	"solana-curve-sniper/internal/executor"
	"solana-curve-sniper/internal/ledger"
	"solana-curve-sniper/internal/logger"
	"solana-curve-sniper/internal/observability"
	"solana-curve-sniper/internal/orchestrator"
	"solana-curve-sniper/internal/queue"
	"solana-curve-sniper/internal/risk"
	"solana-curve-sniper/internal/safety"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/storage"
	chstore "solana-curve-sniper/internal/storage/clickhouse"
	"solana-curve-sniper/internal/storage/memory"
	"solana-curve-sniper/internal/storage/migrations"
	pgstore "solana-curve-sniper/internal/storage/postgres"
	"solana-curve-sniper/internal/validator"
	"solana-curve-sniper/internal/venue/pumpfun"
)

func main() {
	configPath := flag.String("config", ".", "Directory containing config.yml")
	dryRun := flag.Bool("dry-run", false, "Force dry-run mode regardless of config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		cfg.Trading.DryRun = true
	}

	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Two-signal shutdown: the first signal starts the graceful drain,
	// a second signal or a stalled drain forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		select {
		case sig = <-sigCh:
			log.Warn("second signal, forcing exit", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(cfg.Pipeline.ShutdownDrainWindow + 30*time.Second):
			log.Warn("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	if err := run(ctx, cfg, log); err != nil && err != context.Canceled {
		log.Error("sniper exited with error", zap.Error(err))
		close(done)
		os.Exit(1)
	}
	close(done)
	log.Info("sniper stopped")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	profile := buildProfile(cfg.Trading)
	log.Info("risk profile selected",
		zap.String("profile", profile.Name),
		zap.Float64("base_position_sol", profile.BasePositionSol),
		zap.Duration("maturation_delay", profile.MaturationDelay),
		zap.Bool("dry_run", cfg.Trading.DryRun))

	wallet, err := solana.NewWalletFromBase58(cfg.Wallet.PrivateKey)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	log.Info("wallet loaded", zap.String("pubkey", wallet.Pubkey().String()))

	metrics := observability.NewMetrics("")
	if cfg.Metrics.Addr != "" {
		startMetricsServer(cfg.Metrics.Addr, log)
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCEndpoint,
		solana.WithObserver(func(method string, d time.Duration) {
			metrics.RPCCallLatency.WithLabelValues(method).Observe(d.Seconds())
		}))
	wsCfg := solana.DefaultWSConfig()
	wsCfg.OnReconnect = metrics.WSReconnects.Inc
	ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
	if err != nil {
		return fmt.Errorf("connect websocket: %w", err)
	}
	defer ws.Close()

	trades, positions, archive, cleanup, err := buildStores(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer cleanup()

	curves := pumpfun.NewStateReader(rpc)
	listener := discovery.NewListener(discovery.ListenerOptions{
		WS:         ws,
		Curves:     curves,
		FetchLimit: cfg.Pipeline.FetchTimeout,
		Logger:     log,
	})
	trending := discovery.NewTrendingScanner(discovery.TrendingConfig{
		Window:                30 * time.Minute,
		MinLiquidityGrowthSol: profile.MinLiquiditySol,
		MaxTracked:            cfg.Pipeline.QueueCapacity,
	}, curves, log)

	bus := events.NewBus(log)
	defer bus.Close()
	archiver := events.NewArchiver(archive, log)
	go archiver.Run(ctx, bus.Subscribe())

	fees := executor.NewFeeEstimator(rpc, executor.FeeOptions{
		BaseTipLamports: cfg.Solana.BaseTipLamports,
		TTL:             cfg.Solana.FeeCacheTTL,
	})
	submitter := executor.NewSubmitter(rpc, wallet, fees, log, executor.SubmitterOptions{
		MaxRetries:     cfg.Solana.SubmitMaxRetries,
		ConfirmTimeout: cfg.Solana.ConfirmTimeout,
		PollInterval:   cfg.Solana.ConfirmPollEvery,
	})

	breaker := risk.NewCircuitBreaker(risk.LimitsFromProfile(profile), log)
	breaker.OnTrip(func(class string) {
		metrics.BreakerTrips.WithLabelValues(class).Inc()
		metrics.BreakerTripped.Set(1)
	})

	orch := orchestrator.New(orchestrator.Options{
		Profile: profile,
		Queue: queue.New(queue.Options{
			Capacity:        cfg.Pipeline.QueueCapacity,
			MaturationDelay: profile.MaturationDelay,
			MinMarketCapSol: profile.MinMarketCapSol,
			NameBlocklist:   cfg.Pipeline.NameBlocklist,
			OnEvict:         func(string) { metrics.QueueEvictions.Inc() },
		}),
		Validator: validator.New(curves, validator.RulesFromProfile(profile), log),
		Engine:    decision.New(profile),
		Breaker:   breaker,
		Ledger:    ledger.New(profile, log),
		Submitter: submitter,
		Safety: safety.NewBundle(
			safety.NewOnChainVerdict(rpc),
			safety.NewOnChainHolders(rpc),
			&safety.StaticReputation{},
			cfg.Pipeline.FetchTimeout,
		),
		Curves: curves,
		Wallet: wallet,

		NewListings: listener.Candidates(),
		Trending:    trending.Candidates(),
		Tracker:     trending,

		Trades:    trades,
		Positions: positions,
		Bus:       bus,
		Metrics:   metrics,
		Logger:    log,

		ValidationWorkers: cfg.Pipeline.ValidationWorkers,
		BatchSpacing:      cfg.Pipeline.BatchSpacing,
		TickInterval:      cfg.Pipeline.TickInterval,
		DrainWindow:       cfg.Pipeline.ShutdownDrainWindow,
		DryRun:            cfg.Trading.DryRun,
	})

	if err := orch.Recover(ctx); err != nil {
		return fmt.Errorf("recover open positions: %w", err)
	}

	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("discovery listener stopped", zap.Error(err))
		}
	}()
	go func() {
		if err := trending.Run(ctx, cfg.Pipeline.TrendingInterval); err != nil && ctx.Err() == nil {
			log.Error("trending scanner stopped", zap.Error(err))
		}
	}()

	return orch.Run(ctx)
}

// buildProfile resolves the named profile and applies any per-field
// overrides that are set in the config.
func buildProfile(t config.Trading) domain.RiskProfile {
	p := domain.ProfileByName(t.RiskProfile)

	if t.BasePositionSol > 0 {
		p.BasePositionSol = t.BasePositionSol
	}
	if t.MinPositionSol > 0 {
		p.MinPositionSol = t.MinPositionSol
	}
	if t.MaxPositionSol > 0 {
		p.MaxPositionSol = t.MaxPositionSol
	}
	if t.MaxOpenPositions > 0 {
		p.MaxOpenPositions = t.MaxOpenPositions
	}
	if t.MaxDailyTrades > 0 {
		p.MaxDailyTrades = t.MaxDailyTrades
	}
	if t.DailyLossFloorSol < 0 {
		p.DailyLossFloorSol = t.DailyLossFloorSol
	}
	if t.ConsecutiveLossLimit > 0 {
		p.ConsecutiveLossLimit = t.ConsecutiveLossLimit
	}
	if t.StopLossPct > 0 {
		p.StopLossPct = t.StopLossPct
	}
	if t.TrailingStopPct > 0 {
		p.TrailingStopPct = t.TrailingStopPct
	}
	if t.SlippageTolerancePct > 0 {
		p.SlippageTolerancePct = t.SlippageTolerancePct
	}
	if t.MaturationDelay > 0 {
		p.MaturationDelay = t.MaturationDelay
	}
	return p
}

// buildStores selects persistent or in-memory storage per DSN. Empty
// DSNs fall back to in-memory stores, which lose state on restart.
func buildStores(ctx context.Context, cfg config.Storage, log *zap.Logger) (storage.TradeStore, storage.PositionStore, storage.EventArchive, func(), error) {
	var (
		trades    storage.TradeStore
		positions storage.PositionStore
		archive   storage.EventArchive
		closers   []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		trades = pgstore.NewTradeStore(pool)
		positions = pgstore.NewPositionStore(pool)
		log.Info("using postgres storage")
	} else {
		trades = memory.NewTradeStore()
		positions = memory.NewPositionStore()
		log.Warn("postgres DSN not set, trades and positions are in-memory only")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		archive = chstore.NewEventArchive(conn)
		log.Info("using clickhouse event archive")
	} else {
		archive = memory.NewEventArchive()
		log.Warn("clickhouse DSN not set, event archive is in-memory only")
	}

	return trades, positions, archive, cleanup, nil
}

func startMetricsServer(addr string, log *zap.Logger) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		log.Info("metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
}
