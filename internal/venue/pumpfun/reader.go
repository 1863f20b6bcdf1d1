package pumpfun

import (
	"context"
	"fmt"

	"solana-curve-sniper/internal/errs"
	"solana-curve-sniper/internal/solana"
)

// StateReader fetches and decodes live bonding-curve state.
type StateReader struct {
	rpc solana.RPCClient
}

func NewStateReader(rpc solana.RPCClient) *StateReader {
	return &StateReader{rpc: rpc}
}

// ReadCurve derives the curve account for a mint and decodes its state.
// A missing account or fetch failure surfaces as DataUnavailableError so
// callers fail closed.
func (r *StateReader) ReadCurve(ctx context.Context, mint string) (*CurveState, error) {
	mintPk, err := solana.ParsePubkey(mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}

	curveAddr, _, err := DeriveCurveAccounts(mintPk)
	if err != nil {
		return nil, err
	}

	info, err := r.rpc.GetAccountInfo(ctx, curveAddr.String())
	if err != nil {
		return nil, errs.DataUnavailable("bonding curve", err)
	}
	if info == nil || len(info.Data) == 0 {
		return nil, errs.DataUnavailable("bonding curve", fmt.Errorf("account %s not found", curveAddr))
	}

	state, err := ParseCurveState(info.Data)
	if err != nil {
		return nil, fmt.Errorf("decode curve %s: %w", curveAddr, err)
	}
	return state, nil
}
