// Package validator re-checks matured candidates against fresh curve state.
package validator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/venue/pumpfun"
)

// CurveReader loads the bonding-curve state for a mint.
type CurveReader interface {
	ReadCurve(ctx context.Context, mint string) (*pumpfun.CurveState, error)
}

// Rules are the venue-specific pass thresholds, taken from the risk profile.
type Rules struct {
	MinMarketCapSol    float64
	MinLiquiditySol    float64
	MinBondingProgress float64
	MaxBondingProgress float64
}

// RulesFromProfile extracts validation rules from a risk profile.
func RulesFromProfile(p domain.RiskProfile) Rules {
	return Rules{
		MinMarketCapSol:    p.MinMarketCapSol,
		MinLiquiditySol:    p.MinLiquiditySol,
		MinBondingProgress: p.MinBondingProgress,
		MaxBondingProgress: p.MaxBondingProgress,
	}
}

// Validator applies the pass rules to freshly fetched curve state.
// A rule failure is terminal for the candidate: the data needed is
// already complete at validation time, so there is nothing to retry.
// Only a failed fetch is marked retryable.
type Validator struct {
	curves CurveReader
	rules  Rules
	logger *zap.Logger
}

// New creates a Validator.
func New(curves CurveReader, rules Rules, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{curves: curves, rules: rules, logger: logger}
}

// Validate re-fetches the candidate's curve and applies the pass rules.
// The returned result always carries the fresh metrics, pass or fail.
// A fetch failure is reported as a failed validation, not an error:
// uncertain data rejects.
func (v *Validator) Validate(ctx context.Context, c domain.Candidate) domain.ValidationResult {
	result := domain.ValidationResult{Mint: c.Mint}

	state, err := v.curves.ReadCurve(ctx, c.Mint)
	if err != nil || state == nil {
		result.Reason = fmt.Sprintf("curve state unavailable: %v", err)
		result.Retryable = true
		v.emit(c, result)
		return result
	}

	result.LiquiditySol = state.LiquiditySol()
	result.BondingProgressPercent = state.ProgressPercent()
	result.MarketCapSol = state.MarketCapSol()

	switch {
	case state.Complete:
		result.Reason = "curve already graduated to open market"
	case result.MarketCapSol < v.rules.MinMarketCapSol:
		result.Reason = fmt.Sprintf("market cap %.2f SOL below floor %.2f", result.MarketCapSol, v.rules.MinMarketCapSol)
	case result.LiquiditySol < v.rules.MinLiquiditySol:
		result.Reason = fmt.Sprintf("liquidity %.2f SOL below floor %.2f", result.LiquiditySol, v.rules.MinLiquiditySol)
	case result.BondingProgressPercent < v.rules.MinBondingProgress:
		result.Reason = fmt.Sprintf("bonding progress %.1f%% below %.1f%%", result.BondingProgressPercent, v.rules.MinBondingProgress)
	case result.BondingProgressPercent > v.rules.MaxBondingProgress:
		result.Reason = fmt.Sprintf("bonding progress %.1f%% above %.1f%%, graduation imminent", result.BondingProgressPercent, v.rules.MaxBondingProgress)
	default:
		result.Passed = true
	}

	v.emit(c, result)
	return result
}

func (v *Validator) emit(c domain.Candidate, r domain.ValidationResult) {
	fields := []zap.Field{
		zap.String("mint", c.Mint),
		zap.String("symbol", c.Symbol),
		zap.String("source", string(c.Source)),
		zap.Bool("passed", r.Passed),
		zap.Float64("liquidity_sol", r.LiquiditySol),
		zap.Float64("bonding_progress_pct", r.BondingProgressPercent),
		zap.Float64("market_cap_sol", r.MarketCapSol),
	}
	if r.Passed {
		v.logger.Info("validation passed", fields...)
	} else {
		v.logger.Info("validation rejected", append(fields, zap.String("reason", r.Reason))...)
	}
}
