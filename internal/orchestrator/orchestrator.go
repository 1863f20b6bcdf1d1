// Package orchestrator wires discovery, admission, execution, and
// position management into the running pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"solana-curve-sniper/internal/decision"
	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/errs"
	"solana-curve-sniper/internal/events"
	"solana-curve-sniper/internal/executor"
	"solana-curve-sniper/internal/ledger"
	"solana-curve-sniper/internal/observability"
	"solana-curve-sniper/internal/queue"
	"solana-curve-sniper/internal/risk"
	"solana-curve-sniper/internal/safety"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/storage"
	"solana-curve-sniper/internal/validator"
	"solana-curve-sniper/internal/venue/pumpfun"
)

// Fetch-failure requeue policy. Rule failures never retry.
const (
	maxValidationRetries = 3
	requeueDelay         = 30 * time.Second
)

// CurveReader loads the bonding-curve state for a mint.
type CurveReader interface {
	ReadCurve(ctx context.Context, mint string) (*pumpfun.CurveState, error)
}

// Tracker registers new listings for trending re-scans.
type Tracker interface {
	Track(c domain.Candidate)
}

// Options wires the Orchestrator's collaborators.
type Options struct {
	Profile domain.RiskProfile

	Queue     *queue.CandidateQueue
	Validator *validator.Validator
	Engine    *decision.Engine
	Breaker   *risk.CircuitBreaker
	Ledger    *ledger.Ledger
	Submitter *executor.Submitter
	Safety    *safety.Bundle
	Curves    CurveReader
	Wallet    *solana.Wallet

	// NewListings and Trending are the two discovery input streams.
	NewListings <-chan domain.Candidate
	Trending    <-chan domain.Candidate
	Tracker     Tracker

	Trades    storage.TradeStore
	Positions storage.PositionStore
	Bus       *events.Bus
	Metrics   *observability.Metrics
	Logger    *zap.Logger

	ValidationWorkers int           // concurrent validations per batch, default 5
	BatchSpacing      time.Duration // pause between validation batches, default 2s
	TickInterval      time.Duration // position price-poll interval, default 3s
	DrainWindow       time.Duration // shutdown budget for in-flight submissions, default 60s
	DryRun            bool
}

// Orchestrator owns the candidate lifecycle: discovery streams feed the
// maturation queue; matured candidates are validated in paced batches,
// decided, and admitted through one serialized gate; confirmed entries
// become ledger positions driven by the price-tick loop.
type Orchestrator struct {
	opts Options
	log  *zap.Logger

	limiter *rate.Limiter

	// admitMu serializes every admission decision so CanAdmit and the
	// per-mint exclusivity check are atomic with respect to each other.
	admitMu      sync.Mutex
	pendingEntry map[string]bool

	// inflight counts submissions that must reach a terminal state
	// before the process may exit.
	inflight sync.WaitGroup

	// submitCtx outlives the run context by the drain window.
	submitCtx    context.Context
	submitCancel context.CancelFunc
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.ValidationWorkers <= 0 {
		opts.ValidationWorkers = 5
	}
	if opts.BatchSpacing <= 0 {
		opts.BatchSpacing = 2 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 3 * time.Second
	}
	if opts.DrainWindow <= 0 {
		opts.DrainWindow = 60 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	submitCtx, submitCancel := context.WithCancel(context.Background())
	return &Orchestrator{
		opts:         opts,
		log:          log,
		limiter:      rate.NewLimiter(rate.Every(opts.BatchSpacing), 1),
		pendingEntry: make(map[string]bool),
		submitCtx:    submitCtx,
		submitCancel: submitCancel,
	}
}

// Recover reloads open positions into the ledger and seeds the breaker's
// open-position count. Called once before Run.
func (o *Orchestrator) Recover(ctx context.Context) error {
	open, err := o.opts.Positions.LoadOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open positions: %w", err)
	}
	for _, p := range open {
		if err := o.opts.Ledger.Restore(*p); err != nil {
			return fmt.Errorf("restore position %s: %w", p.ID, err)
		}
		o.log.Info("position recovered",
			zap.String("mint", p.Mint),
			zap.String("status", string(p.Status)))
	}
	o.opts.Breaker.SetOpenPositions(len(open))
	o.opts.Metrics.OpenPositions.Set(float64(len(open)))

	// Submissions that exhausted their retries may still have landed.
	// Surface them so an operator can reconcile against the chain.
	unconfirmed, err := o.opts.Trades.GetUnconfirmed(ctx)
	if err != nil {
		return fmt.Errorf("load unconfirmed trades: %w", err)
	}
	for _, t := range unconfirmed {
		o.log.Warn("unconfirmed trade needs reconciliation",
			zap.String("trade_id", t.TradeID),
			zap.String("mint", t.Mint),
			zap.String("side", string(t.Side)),
			zap.String("signature", t.Signature))
	}
	return nil
}

// Run starts all worker loops and blocks until the context is
// cancelled, then drains in-flight submissions to a terminal state
// within the drain window.
func (o *Orchestrator) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	loops := []func(context.Context){
		o.discoveryLoop,
		o.trendingLoop,
		o.maturationLoop,
		o.tickLoop,
		o.dailyResetLoop,
	}
	for _, loop := range loops {
		wg.Add(1)
		go func(fn func(context.Context)) {
			defer wg.Done()
			fn(ctx)
		}(loop)
	}

	<-ctx.Done()
	wg.Wait()

	// Abandoning a submitted-but-unconfirmed transaction is a
	// correctness hazard; give submissions the drain window.
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		o.log.Info("all in-flight submissions drained")
	case <-time.After(o.opts.DrainWindow):
		o.log.Warn("drain window elapsed with submissions still in flight")
	}
	o.submitCancel()
	return ctx.Err()
}

// discoveryLoop feeds new listings into the queue and the trending
// watch set.
func (o *Orchestrator) discoveryLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-o.opts.NewListings:
			if !ok {
				return
			}
			o.opts.Metrics.CandidatesDiscovered.WithLabelValues(string(c.Source)).Inc()
			if o.opts.Tracker != nil {
				o.opts.Tracker.Track(c)
			}
			o.enqueue(c)
		}
	}
}

// trendingLoop feeds trending rediscoveries into the queue.
func (o *Orchestrator) trendingLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-o.opts.Trending:
			if !ok {
				return
			}
			o.opts.Metrics.CandidatesDiscovered.WithLabelValues(string(c.Source)).Inc()
			o.enqueue(c)
		}
	}
}

func (o *Orchestrator) enqueue(c domain.Candidate) {
	if err := o.opts.Queue.Enqueue(c); err != nil {
		if errs.IsRejection(err) {
			o.publishRejection(c.Mint, err.Error())
		} else {
			o.log.Warn("enqueue failed", zap.String("mint", c.Mint), zap.Error(err))
		}
	}
	o.opts.Metrics.QueueDepth.Set(float64(o.opts.Queue.Len()))
}

// maturationLoop drains matured candidates and processes them in
// bounded, rate-paced batches.
func (o *Orchestrator) maturationLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		mature := o.opts.Queue.DrainMature(time.Now())
		o.opts.Metrics.QueueDepth.Set(float64(o.opts.Queue.Len()))
		if len(mature) == 0 {
			continue
		}

		for start := 0; start < len(mature); start += o.opts.ValidationWorkers {
			if err := o.limiter.Wait(ctx); err != nil {
				return
			}
			end := start + o.opts.ValidationWorkers
			if end > len(mature) {
				end = len(mature)
			}

			var batch sync.WaitGroup
			for _, c := range mature[start:end] {
				batch.Add(1)
				go func(c domain.Candidate) {
					defer batch.Done()
					o.processCandidate(ctx, c)
				}(c)
			}
			batch.Wait()
		}
	}
}

// processCandidate runs one candidate through validation, decision, and
// admission. Any rejection terminates only this candidate's run.
func (o *Orchestrator) processCandidate(ctx context.Context, c domain.Candidate) {
	result := o.opts.Validator.Validate(ctx, c)
	if !result.Passed {
		o.opts.Metrics.CandidatesValidated.WithLabelValues("failed").Inc()
		if result.Retryable {
			if o.opts.Queue.Requeue(c, maxValidationRetries, requeueDelay) {
				o.log.Info("candidate requeued after fetch failure",
					zap.String("mint", c.Mint),
					zap.Int("retry", c.RetryCount+1))
				return
			}
		}
		o.publishRejection(c.Mint, result.Reason)
		return
	}
	o.opts.Metrics.CandidatesValidated.WithLabelValues("passed").Inc()

	in := decision.Inputs{Candidate: c, Validation: result}
	if v, err := o.opts.Safety.SafetyVerdict(ctx, c.Mint); err == nil {
		in.Safety = v
	} else {
		o.log.Warn("safety fetch failed", zap.String("mint", c.Mint), zap.Error(err))
	}
	if h, err := o.opts.Safety.HolderConcentration(ctx, c.Mint); err == nil {
		in.Holders = h
	} else {
		o.log.Warn("holder fetch failed", zap.String("mint", c.Mint), zap.Error(err))
	}
	if r, err := o.opts.Safety.ReputationSignal(ctx, c.Mint); err == nil {
		in.Reputation = r
	}

	d := o.opts.Engine.Evaluate(in)
	o.log.Info("decision computed",
		zap.String("mint", c.Mint),
		zap.Bool("should_trade", d.ShouldTrade),
		zap.Float64("size_sol", d.SizeSol),
		zap.Strings("reasons", d.Reasons))
	if !d.ShouldTrade {
		o.opts.Metrics.DecisionsTotal.WithLabelValues("rejected").Inc()
		o.publishRejection(c.Mint, lastReason(d.Reasons))
		return
	}
	o.opts.Metrics.DecisionsTotal.WithLabelValues("approved").Inc()

	if !o.admit(c.Mint) {
		return
	}
	defer o.clearPending(c.Mint)

	o.opts.Bus.Publish(domain.PipelineEvent{
		Type:    domain.EventCandidateAdmitted,
		Mint:    c.Mint,
		SizeSol: d.SizeSol,
	})
	o.executeEntry(ctx, c, d)
}

// admit checks the breaker and per-mint exclusivity atomically. On
// success an entry slot is reserved; clearPending must run after the
// entry attempt regardless of outcome.
func (o *Orchestrator) admit(mint string) bool {
	o.admitMu.Lock()
	defer o.admitMu.Unlock()

	if o.pendingEntry[mint] {
		o.opts.Metrics.AdmissionsBlocked.WithLabelValues("pending_entry").Inc()
		return false
	}
	if _, open := o.opts.Ledger.Get(mint); open {
		o.opts.Metrics.AdmissionsBlocked.WithLabelValues("already_open").Inc()
		o.publishRejection(mint, "position already open")
		return false
	}
	ok, reason := o.opts.Breaker.CanAdmit()
	if !ok {
		o.opts.Metrics.AdmissionsBlocked.WithLabelValues("breaker").Inc()
		o.opts.Metrics.BreakerTripped.Set(1)
		o.publishRejection(mint, "circuit breaker: "+reason)
		o.opts.Bus.Publish(domain.PipelineEvent{
			Type:   domain.EventCircuitBreakerTrip,
			Mint:   mint,
			Reason: reason,
		})
		return false
	}
	o.pendingEntry[mint] = true
	return true
}

func (o *Orchestrator) clearPending(mint string) {
	o.admitMu.Lock()
	delete(o.pendingEntry, mint)
	o.admitMu.Unlock()
}

func (o *Orchestrator) publishRejection(mint, reason string) {
	o.opts.Bus.Publish(domain.PipelineEvent{
		Type:   domain.EventCandidateRejected,
		Mint:   mint,
		Reason: reason,
	})
}

func lastReason(reasons []string) string {
	if len(reasons) == 0 {
		return "no decision reasons recorded"
	}
	return reasons[len(reasons)-1]
}
