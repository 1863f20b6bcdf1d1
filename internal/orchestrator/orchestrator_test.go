package orchestrator

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"solana-curve-sniper/internal/decision"
	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/events"
	"solana-curve-sniper/internal/ledger"
	"solana-curve-sniper/internal/observability"
	"solana-curve-sniper/internal/queue"
	"solana-curve-sniper/internal/risk"
	"solana-curve-sniper/internal/safety"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/storage/memory"
	"solana-curve-sniper/internal/validator"
	"solana-curve-sniper/internal/venue/pumpfun"
)

const testMint = "So11111111111111111111111111111111111111112"

// Prometheus collectors register globally, so all tests share one set.
var testMetrics = observability.NewMetrics("orchestrator_test")

type stubCurves struct {
	state *pumpfun.CurveState
	err   error
	// next, when non-empty, is consumed one state per call before
	// falling back to state.
	next []*pumpfun.CurveState
}

func (s *stubCurves) ReadCurve(ctx context.Context, mint string) (*pumpfun.CurveState, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.next) > 0 {
		st := s.next[0]
		s.next = s.next[1:]
		return st, nil
	}
	return s.state, nil
}

type verdictFunc func(ctx context.Context, mint string) (*domain.SafetyVerdict, error)

func (f verdictFunc) FetchSafetyVerdict(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
	return f(ctx, mint)
}

type holderFunc func(ctx context.Context, mint string) (*domain.HolderConcentration, error)

func (f holderFunc) FetchHolderConcentration(ctx context.Context, mint string) (*domain.HolderConcentration, error) {
	return f(ctx, mint)
}

func healthyCurve() *pumpfun.CurveState {
	return &pumpfun.CurveState{
		VirtualTokenReserves: 993_690_000_000_000,
		VirtualSolReserves:   38_500_000_000,
		RealTokenReserves:    713_790_000_000_000,
		RealSolReserves:      8_500_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

func testProfile() domain.RiskProfile {
	return domain.RiskProfile{
		Name:                 "TEST",
		BasePositionSol:      0.1,
		MinPositionSol:       0.02,
		MaxPositionSol:       0.2,
		MaxOpenPositions:     2,
		MaxDailyTrades:       10,
		DailyLossFloorSol:    -1.0,
		ConsecutiveLossLimit: 3,
		StopLossPct:          0.12,
		TrailingStopPct:      0.15,
		TakeProfits: []domain.TakeProfitLevel{
			{PriceMultiple: 2.0, FractionToSell: 0.25},
		},
		MinLiquiditySol:      3,
		MinMarketCapSol:      5,
		MinBondingProgress:   2,
		MaxBondingProgress:   85,
		MaxTop1HolderPct:     20,
		MaxTop10HolderPct:    50,
		MinHolderCount:       10,
		SlippageTolerancePct: 5,
	}
}

func cleanVerdict(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
	return &domain.SafetyVerdict{Mint: mint, IsSafe: true}, nil
}

func cleanHolders(ctx context.Context, mint string) (*domain.HolderConcentration, error) {
	return &domain.HolderConcentration{Mint: mint, Top1Percent: 5, Top10Percent: 20, HolderCount: 100}, nil
}

func testWallet(t *testing.T) *solana.Wallet {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{9}, ed25519.SeedSize))
	w, err := solana.NewWalletFromBase58(base58.Encode(priv))
	if err != nil {
		t.Fatalf("build wallet: %v", err)
	}
	return w
}

type testPipeline struct {
	orch      *Orchestrator
	trades    *memory.TradeStore
	positions *memory.PositionStore
	bus       *events.Bus
	breaker   *risk.CircuitBreaker
	led       *ledger.Ledger
}

func newTestPipeline(t *testing.T, curves *stubCurves, verdict verdictFunc, holders holderFunc) *testPipeline {
	t.Helper()
	return newPipelineWithProfile(t, testProfile(), curves, verdict, holders)
}

func newPipelineWithProfile(t *testing.T, profile domain.RiskProfile, curves *stubCurves, verdict verdictFunc, holders holderFunc) *testPipeline {
	t.Helper()

	trades := memory.NewTradeStore()
	positions := memory.NewPositionStore()
	bus := events.NewBus(nil)
	t.Cleanup(bus.Close)
	breaker := risk.NewCircuitBreaker(risk.LimitsFromProfile(profile), nil)
	led := ledger.New(profile, zap.NewNop())

	orch := New(Options{
		Profile:   profile,
		Queue:     queue.New(queue.Options{Capacity: 16}),
		Validator: validator.New(curves, validator.RulesFromProfile(profile), nil),
		Engine:    decision.New(profile),
		Breaker:   breaker,
		Ledger:    led,
		Safety: safety.NewBundle(verdict, holders,
			&safety.StaticReputation{}, time.Second),
		Curves:    curves,
		Wallet:    testWallet(t),
		Trades:    trades,
		Positions: positions,
		Bus:       bus,
		Metrics:   testMetrics,
		DryRun:    true,
	})

	return &testPipeline{
		orch:      orch,
		trades:    trades,
		positions: positions,
		bus:       bus,
		breaker:   breaker,
		led:       led,
	}
}

func testCandidate() domain.Candidate {
	return domain.Candidate{
		Mint:         testMint,
		Name:         "Test Token",
		Symbol:       "TEST",
		Source:       domain.SourceNewListing,
		DiscoveredAt: time.Now(),
	}
}

// drainEvents collects everything currently buffered on the channel.
func drainEvents(ch <-chan domain.PipelineEvent) []domain.PipelineEvent {
	var out []domain.PipelineEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestProcessCandidate_DryRunOpensPosition(t *testing.T) {
	curves := &stubCurves{state: healthyCurve()}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)
	sub := p.bus.Subscribe()

	p.orch.processCandidate(context.Background(), testCandidate())

	pos, open := p.led.Get(testMint)
	if !open {
		t.Fatal("expected an open ledger position")
	}
	if pos.Status != domain.PositionOpen {
		t.Errorf("Expected status OPEN, got %s", pos.Status)
	}
	if pos.EntryAmountSol != 0.1 {
		t.Errorf("Expected entry 0.1 SOL, got %f", pos.EntryAmountSol)
	}

	trades, err := p.trades.GetByMint(context.Background(), testMint)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("Expected 1 trade, got %d", len(trades))
	}
	if trades[0].Side != domain.TradeBuy || !trades[0].Confirmed {
		t.Errorf("Expected confirmed BUY, got %s confirmed=%v", trades[0].Side, trades[0].Confirmed)
	}

	stored, err := p.positions.LoadOpen(context.Background())
	if err != nil {
		t.Fatalf("load open positions: %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("Expected 1 persisted position, got %d", len(stored))
	}

	_, _, _, _, tradesToday, openCount := p.breaker.Snapshot()
	if tradesToday != 1 {
		t.Errorf("Expected 1 trade recorded in breaker, got %d", tradesToday)
	}
	if openCount != 1 {
		t.Errorf("Expected 1 open slot held, got %d", openCount)
	}

	types := map[domain.EventType]bool{}
	for _, ev := range drainEvents(sub) {
		types[ev.Type] = true
	}
	if !types[domain.EventCandidateAdmitted] {
		t.Error("expected CANDIDATE_ADMITTED event")
	}
	if !types[domain.EventTradeExecuted] {
		t.Error("expected TRADE_EXECUTED event")
	}
}

func TestProcessCandidate_FetchFailureRequeues(t *testing.T) {
	curves := &stubCurves{err: fmt.Errorf("rpc timeout")}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)
	sub := p.bus.Subscribe()

	p.orch.processCandidate(context.Background(), testCandidate())

	if p.led.Len() != 0 {
		t.Errorf("Expected no positions, got %d", p.led.Len())
	}
	if got := p.orch.opts.Queue.Len(); got != 1 {
		t.Errorf("Expected candidate requeued, queue len %d", got)
	}
	if evs := drainEvents(sub); len(evs) != 0 {
		t.Errorf("Expected no events while retries remain, got %+v", evs)
	}
}

func TestProcessCandidate_FetchFailureRetriesExhausted(t *testing.T) {
	curves := &stubCurves{err: fmt.Errorf("rpc timeout")}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)
	sub := p.bus.Subscribe()

	c := testCandidate()
	c.RetryCount = maxValidationRetries
	p.orch.processCandidate(context.Background(), c)

	if got := p.orch.opts.Queue.Len(); got != 0 {
		t.Errorf("Expected no requeue past the retry cap, queue len %d", got)
	}
	evs := drainEvents(sub)
	if len(evs) != 1 || evs[0].Type != domain.EventCandidateRejected {
		t.Fatalf("Expected single CANDIDATE_REJECTED event, got %+v", evs)
	}
}

func TestProcessCandidate_CriticalFlagRejects(t *testing.T) {
	curves := &stubCurves{state: healthyCurve()}
	flagged := verdictFunc(func(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
		return &domain.SafetyVerdict{
			Mint:  mint,
			Flags: []domain.RiskFlag{domain.FlagMintAuthorityActive},
		}, nil
	})
	p := newTestPipeline(t, curves, flagged, cleanHolders)

	p.orch.processCandidate(context.Background(), testCandidate())

	if p.led.Len() != 0 {
		t.Errorf("Expected no positions, got %d", p.led.Len())
	}
	// The decision rejected before admission, so no slot was reserved.
	_, _, _, _, _, openCount := p.breaker.Snapshot()
	if openCount != 0 {
		t.Errorf("Expected 0 open slots, got %d", openCount)
	}
}

func TestProcessCandidate_SafetyFetchFailureRejects(t *testing.T) {
	curves := &stubCurves{state: healthyCurve()}
	failing := verdictFunc(func(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
		return nil, fmt.Errorf("collaborator down")
	})
	p := newTestPipeline(t, curves, failing, cleanHolders)

	p.orch.processCandidate(context.Background(), testCandidate())

	if p.led.Len() != 0 {
		t.Errorf("Expected no positions on missing safety data, got %d", p.led.Len())
	}
}

func TestProcessCandidate_OpenPositionBlocksReentry(t *testing.T) {
	curves := &stubCurves{state: healthyCurve()}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)

	p.orch.processCandidate(context.Background(), testCandidate())
	p.orch.processCandidate(context.Background(), testCandidate())

	trades, _ := p.trades.GetByMint(context.Background(), testMint)
	if len(trades) != 1 {
		t.Errorf("Expected second entry blocked, got %d trades", len(trades))
	}
	if p.led.Len() != 1 {
		t.Errorf("Expected 1 position, got %d", p.led.Len())
	}
}

func TestProcessCandidate_EntryCurveGoneReleasesSlot(t *testing.T) {
	// Curve graduates between validation and entry: the first read is
	// healthy, the second sees Complete.
	done := healthyCurve()
	done.Complete = true
	curves := &stubCurves{
		state: done,
		next:  []*pumpfun.CurveState{healthyCurve()},
	}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)

	p.orch.processCandidate(context.Background(), testCandidate())

	if p.led.Len() != 0 {
		t.Errorf("Expected no positions, got %d", p.led.Len())
	}
	_, _, _, _, _, openCount := p.breaker.Snapshot()
	if openCount != 0 {
		t.Errorf("Expected released slot, got %d held", openCount)
	}
}

func TestRecover_RestoresLedgerAndBreaker(t *testing.T) {
	curves := &stubCurves{state: healthyCurve()}
	p := newTestPipeline(t, curves, cleanVerdict, cleanHolders)

	seed := &domain.Position{
		ID:               "pos-recover",
		Mint:             testMint,
		Symbol:           "TEST",
		EntryPrice:       1.0,
		EntryAmountSol:   0.1,
		EntryAmountToken: 100,
		EntryAt:          time.Now().Add(-time.Hour),
		HighestPriceSeen: 1.0,
		LowestPriceSeen:  1.0,
		StopLossPrice:    0.88,
		Status:           domain.PositionOpen,
	}
	if err := p.positions.Upsert(context.Background(), seed); err != nil {
		t.Fatalf("seed position: %v", err)
	}

	if err := p.orch.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	if _, open := p.led.Get(testMint); !open {
		t.Fatal("expected recovered position in ledger")
	}
	_, _, _, _, _, openCount := p.breaker.Snapshot()
	if openCount != 1 {
		t.Errorf("Expected breaker seeded with 1 open position, got %d", openCount)
	}

	// The recovered position occupies the mint; a fresh candidate for it
	// is rejected at admission.
	p.orch.processCandidate(context.Background(), testCandidate())
	trades, _ := p.trades.GetByMint(context.Background(), testMint)
	if len(trades) != 0 {
		t.Errorf("Expected no new entry on recovered mint, got %d trades", len(trades))
	}
}

func TestLastReason(t *testing.T) {
	if got := lastReason(nil); got != "no decision reasons recorded" {
		t.Errorf("Expected fallback reason, got %q", got)
	}
	if got := lastReason([]string{"a", "b"}); got != "b" {
		t.Errorf("Expected last reason b, got %q", got)
	}
}

func TestExecuteExit_LadderRecordsEveryOrder(t *testing.T) {
	profile := testProfile()
	profile.TrailingStopPct = 0
	profile.TakeProfits = []domain.TakeProfitLevel{
		{PriceMultiple: 1.5, FractionToSell: 0.5},
		{PriceMultiple: 2.5, FractionToSell: 0.5},
	}
	curves := &stubCurves{state: healthyCurve()}
	p := newPipelineWithProfile(t, profile, curves, cleanVerdict, cleanHolders)
	sub := p.bus.Subscribe()
	ctx := context.Background()

	p.orch.processCandidate(ctx, testCandidate())
	pos, open := p.led.Get(testMint)
	if !open {
		t.Fatal("expected an open ledger position")
	}
	drainEvents(sub)

	orders, err := p.led.Tick(testMint, pos.EntryPrice*3)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Expected both levels to fire, got %d", len(orders))
	}
	for _, order := range orders {
		p.orch.executeExit(ctx, order, healthyCurve())
	}

	if p.led.Len() != 0 {
		t.Errorf("Expected the full ladder to close the position, len=%d", p.led.Len())
	}

	trades, err := p.trades.GetByMint(ctx, testMint)
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	sells := 0
	pnlSum := 0.0
	for _, tr := range trades {
		if tr.Side != domain.TradeSell {
			continue
		}
		sells++
		pnlSum += tr.PnlSol
		if tr.RequestID == "" {
			t.Error("sell trade missing request id")
		}
	}
	if sells != 2 {
		t.Fatalf("Expected 2 sell trades, got %d", sells)
	}

	_, _, dailyPnl, _, _, openCount := p.breaker.Snapshot()
	if openCount != 0 {
		t.Errorf("Expected the slot released on close, got %d open", openCount)
	}
	if dailyPnl < pnlSum-1e-9 || dailyPnl > pnlSum+1e-9 {
		t.Errorf("Expected every exit's PnL in the daily total: daily %.6f, trades %.6f", dailyPnl, pnlSum)
	}

	exits := 0
	for _, ev := range drainEvents(sub) {
		if ev.Type == domain.EventPositionExit {
			exits++
		}
	}
	if exits != 2 {
		t.Errorf("Expected a POSITION_EXIT event per order, got %d", exits)
	}
}
