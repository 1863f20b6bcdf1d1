package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/executor"
	"solana-curve-sniper/internal/idhash"
	"solana-curve-sniper/internal/ledger"
	"solana-curve-sniper/internal/risk"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/venue/pumpfun"
)

// executeEntry performs the buy for an approved candidate and opens the
// ledger position on confirmation. The reserved breaker slot is
// released when no position results.
func (o *Orchestrator) executeEntry(ctx context.Context, c domain.Candidate, d domain.TradeDecision) {
	state, err := o.opts.Curves.ReadCurve(ctx, c.Mint)
	if err != nil || state == nil || state.Complete {
		o.opts.Breaker.ReleaseSlot()
		o.publishRejection(c.Mint, "curve state unavailable at entry")
		return
	}

	lamportsIn := uint64(d.SizeSol * pumpfun.LamportsPerSol)
	tokensOut := state.TokensOut(lamportsIn)
	if tokensOut == 0 {
		o.opts.Breaker.ReleaseSlot()
		o.publishRejection(c.Mint, "curve quotes zero tokens for entry size")
		return
	}
	maxSolCost := uint64(float64(lamportsIn) * (1 + o.opts.Profile.SlippageTolerancePct/100))

	instructions, err := o.buyInstructions(c.Mint, tokensOut, maxSolCost)
	if err != nil {
		o.opts.Breaker.ReleaseSlot()
		o.log.Error("build buy instructions", zap.String("mint", c.Mint), zap.Error(err))
		return
	}

	rep, submitErr := o.submit(instructions, false)
	sig := rep.Signature
	executedAt := time.Now()

	amountToken := float64(tokensOut) / pumpfun.TokenDecimals
	entryPrice := d.SizeSol / amountToken

	record := &domain.TradeRecord{
		TradeID:     idhash.TradeID(c.Mint, string(domain.TradeBuy), sig, executedAt.UnixMilli()),
		RequestID:   idhash.RequestID(c.Mint, string(domain.TradeBuy), rep.Blockhash, lamportsIn),
		Mint:        c.Mint,
		Side:        domain.TradeBuy,
		SizeSol:     d.SizeSol,
		AmountToken: amountToken,
		Price:       entryPrice,
		Signature:   sig,
		Confirmed:   submitErr == nil,
		Attempts:    rep.Attempts,
		ExecutedAt:  executedAt,
	}
	if sig != "" || submitErr == nil {
		// Every submission that reached the network is persisted, even
		// unconfirmed, so an operator can reconcile against the chain.
		if err := o.opts.Trades.Insert(ctx, record); err != nil {
			o.log.Error("persist entry trade", zap.String("mint", c.Mint), zap.Error(err))
		}
	}

	if submitErr != nil {
		o.opts.Breaker.ReleaseSlot()
		if sig != "" {
			o.opts.Metrics.UnconfirmedExhausts.Inc()
		}
		o.log.Warn("entry failed",
			zap.String("mint", c.Mint),
			zap.String("signature", sig),
			zap.Error(submitErr))
		return
	}

	o.opts.Metrics.TradesExecuted.WithLabelValues(string(domain.TradeBuy)).Inc()
	o.opts.Breaker.RecordTrade()

	pos, err := o.opts.Ledger.Open(c.Mint, c.Symbol, entryPrice, d.SizeSol, amountToken, sig)
	if err != nil {
		o.log.Error("open position", zap.String("mint", c.Mint), zap.Error(err))
		return
	}
	o.persistPosition(ctx, pos)
	o.opts.Metrics.OpenPositions.Set(float64(o.opts.Ledger.Len()))

	o.opts.Bus.Publish(domain.PipelineEvent{
		Type:      domain.EventTradeExecuted,
		Mint:      c.Mint,
		Signature: sig,
		SizeSol:   d.SizeSol,
	})
}

// tickLoop polls curve prices for every open position and executes the
// exits the ledger raises.
func (o *Orchestrator) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(o.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		unrealized := 0.0
		for _, pos := range o.opts.Ledger.OpenPositions() {
			state, err := o.opts.Curves.ReadCurve(ctx, pos.Mint)
			if err != nil || state == nil {
				// Stale price: skip the tick, triggers re-evaluate on
				// the next one.
				continue
			}
			price := state.SpotPrice()

			orders, err := o.opts.Ledger.Tick(pos.Mint, price)
			if err != nil {
				continue
			}
			if p, ok := o.opts.Ledger.Get(pos.Mint); ok {
				o.persistPosition(ctx, p)
			}
			for _, order := range orders {
				o.executeExit(ctx, order, state)
			}
			if p, ok := o.opts.Ledger.Get(pos.Mint); ok {
				unrealized += p.UnrealizedPnlSol(price)
			}
		}
		o.opts.Metrics.UnrealizedPnlSol.Set(unrealized)
	}
}

// executeExit sells the ordered fraction. Exits run urgent: speed over
// fee cost, and the breaker never blocks them.
func (o *Orchestrator) executeExit(ctx context.Context, order ledger.ExitOrder, state *pumpfun.CurveState) {
	pos := order.Position
	tokensRaw := uint64(order.FractionOfOriginal * pos.EntryAmountToken * pumpfun.TokenDecimals)
	if tokensRaw == 0 {
		o.opts.Ledger.AbortExit(order)
		return
	}

	expectedLamports := state.SolOut(tokensRaw)
	minSolOutput := uint64(float64(expectedLamports) * (1 - o.opts.Profile.SlippageTolerancePct/100))

	instructions, err := o.sellInstructions(pos.Mint, tokensRaw, minSolOutput)
	if err != nil {
		o.opts.Ledger.AbortExit(order)
		o.log.Error("build sell instructions", zap.String("mint", pos.Mint), zap.Error(err))
		return
	}

	rep, submitErr := o.submit(instructions, true)
	sig := rep.Signature
	executedAt := time.Now()

	solOut := float64(expectedLamports) / pumpfun.LamportsPerSol
	costBasis := order.FractionOfOriginal * pos.EntryAmountSol
	pnl := solOut - costBasis

	record := &domain.TradeRecord{
		TradeID:     idhash.TradeID(pos.Mint, string(domain.TradeSell), sig, executedAt.UnixMilli()),
		RequestID:   idhash.RequestID(pos.Mint, string(domain.TradeSell), rep.Blockhash, expectedLamports),
		Mint:        pos.Mint,
		Side:        domain.TradeSell,
		SizeSol:     solOut,
		AmountToken: float64(tokensRaw) / pumpfun.TokenDecimals,
		Price:       state.SpotPrice(),
		Signature:   sig,
		Confirmed:   submitErr == nil,
		Attempts:    rep.Attempts,
		ExitReason:  order.Reason,
		PnlSol:      pnl,
		ExecutedAt:  executedAt,
	}
	if sig != "" || submitErr == nil {
		if err := o.opts.Trades.Insert(ctx, record); err != nil {
			o.log.Error("persist exit trade", zap.String("mint", pos.Mint), zap.Error(err))
		}
	}

	if submitErr != nil {
		o.opts.Ledger.AbortExit(order)
		if sig != "" {
			o.opts.Metrics.UnconfirmedExhausts.Inc()
		}
		o.log.Warn("exit failed, trigger re-armed",
			zap.String("mint", pos.Mint),
			zap.String("reason", order.Reason),
			zap.String("signature", sig),
			zap.Error(submitErr))
		return
	}

	o.opts.Metrics.TradesExecuted.WithLabelValues(string(domain.TradeSell)).Inc()
	o.opts.Metrics.PositionExits.WithLabelValues(order.Reason).Inc()

	updated, buyback, err := o.opts.Ledger.RecordExit(order, state.SpotPrice(), pnl, sig)
	if err != nil {
		o.log.Error("record exit", zap.String("mint", pos.Mint), zap.Error(err))
		return
	}
	o.persistPosition(ctx, updated)

	closed := updated.Status == domain.PositionClosed
	o.opts.Breaker.RecordExit(pnl, closed)
	o.opts.Metrics.OpenPositions.Set(float64(o.opts.Ledger.Len()))
	o.opts.Metrics.RealizedPnlSol.Add(pnl)
	brState, _, dailyPnl, _, _, _ := o.opts.Breaker.Snapshot()
	o.opts.Metrics.DailyPnlSol.Set(dailyPnl)
	if brState == risk.StateTripped {
		o.opts.Metrics.BreakerTripped.Set(1)
	}

	o.opts.Bus.Publish(domain.PipelineEvent{
		Type:      domain.EventPositionExit,
		Mint:      pos.Mint,
		Reason:    order.Reason,
		Signature: sig,
		PnlSol:    pnl,
	})
	if buyback != nil {
		o.opts.Bus.Publish(domain.PipelineEvent{
			Type:   domain.EventBuybackTriggered,
			Mint:   buyback.Mint,
			PnlSol: buyback.ProfitSol,
		})
	}
}

// submit runs one reliable submission on the drain-aware context.
func (o *Orchestrator) submit(instructions []solana.Instruction, urgent bool) (executor.Report, error) {
	if o.opts.DryRun {
		return executor.Report{
			Signature: fmt.Sprintf("dryrun-%d", time.Now().UnixNano()),
			Attempts:  1,
		}, nil
	}
	o.inflight.Add(1)
	defer o.inflight.Done()
	start := time.Now()
	report, err := o.opts.Submitter.SubmitWithReport(o.submitCtx, instructions, urgent)
	o.opts.Metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	o.opts.Metrics.SubmissionAttempts.Add(float64(report.Attempts))
	return report, err
}

func (o *Orchestrator) buyInstructions(mint string, tokensOut, maxSolCost uint64) ([]solana.Instruction, error) {
	mintPk, err := solana.ParsePubkey(mint)
	if err != nil {
		return nil, err
	}
	curve, vault, err := pumpfun.DeriveCurveAccounts(mintPk)
	if err != nil {
		return nil, err
	}
	user := o.opts.Wallet.Pubkey()
	ata, err := pumpfun.DeriveUserTokenAccount(user, mintPk)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		pumpfun.CreateUserTokenAccount(user, user, mintPk, ata),
		pumpfun.Buy(user, mintPk, curve, vault, ata, tokensOut, maxSolCost),
	}, nil
}

func (o *Orchestrator) sellInstructions(mint string, tokensIn, minSolOutput uint64) ([]solana.Instruction, error) {
	mintPk, err := solana.ParsePubkey(mint)
	if err != nil {
		return nil, err
	}
	curve, vault, err := pumpfun.DeriveCurveAccounts(mintPk)
	if err != nil {
		return nil, err
	}
	user := o.opts.Wallet.Pubkey()
	ata, err := pumpfun.DeriveUserTokenAccount(user, mintPk)
	if err != nil {
		return nil, err
	}
	return []solana.Instruction{
		pumpfun.Sell(user, mintPk, curve, vault, ata, tokensIn, minSolOutput),
	}, nil
}

func (o *Orchestrator) persistPosition(ctx context.Context, p domain.Position) {
	if err := o.opts.Positions.Upsert(ctx, &p); err != nil {
		o.log.Error("persist position", zap.String("mint", p.Mint), zap.Error(err))
	}
}

// dailyResetLoop re-arms the breaker at every UTC midnight.
func (o *Orchestrator) dailyResetLoop(ctx context.Context) {
	for {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			o.opts.Breaker.ResetDaily()
			o.opts.Metrics.BreakerTripped.Set(0)
			o.opts.Metrics.DailyPnlSol.Set(0)
		}
	}
}
