// Package stub provides a scriptable RPCClient for tests.
package stub

import (
	"context"
	"fmt"

	"solana-curve-sniper/internal/solana"
)

// RPC implements solana.RPCClient with per-method function hooks.
// Unset hooks return a zero value, so tests only script what they use.
type RPC struct {
	GetLatestBlockhashFunc          func(ctx context.Context) (*solana.LatestBlockhash, error)
	SendTransactionFunc             func(ctx context.Context, tx string) (string, error)
	SimulateTransactionFunc         func(ctx context.Context, tx string) (*solana.SimulationResult, error)
	GetSignatureStatusesFunc        func(ctx context.Context, sigs []string) ([]*solana.SignatureStatus, error)
	GetRecentPrioritizationFeesFunc func(ctx context.Context, accounts []string) ([]solana.PrioritizationFee, error)
	GetTokenLargestAccountsFunc     func(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error)
	GetTokenSupplyFunc              func(ctx context.Context, mint string) (*solana.TokenAmount, error)
	GetAccountInfoFunc              func(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	GetBalanceFunc                  func(ctx context.Context, pubkey string) (uint64, error)

	SendCount int
}

var _ solana.RPCClient = (*RPC)(nil)

func (r *RPC) GetLatestBlockhash(ctx context.Context) (*solana.LatestBlockhash, error) {
	if r.GetLatestBlockhashFunc != nil {
		return r.GetLatestBlockhashFunc(ctx)
	}
	return &solana.LatestBlockhash{Blockhash: "11111111111111111111111111111111", LastValidBlockHeight: 1}, nil
}

func (r *RPC) SendTransaction(ctx context.Context, tx string) (string, error) {
	r.SendCount++
	if r.SendTransactionFunc != nil {
		return r.SendTransactionFunc(ctx, tx)
	}
	return fmt.Sprintf("stub-signature-%d", r.SendCount), nil
}

func (r *RPC) SimulateTransaction(ctx context.Context, tx string) (*solana.SimulationResult, error) {
	if r.SimulateTransactionFunc != nil {
		return r.SimulateTransactionFunc(ctx, tx)
	}
	return &solana.SimulationResult{UnitsConsumed: 100_000}, nil
}

func (r *RPC) GetSignatureStatuses(ctx context.Context, sigs []string) ([]*solana.SignatureStatus, error) {
	if r.GetSignatureStatusesFunc != nil {
		return r.GetSignatureStatusesFunc(ctx, sigs)
	}
	return make([]*solana.SignatureStatus, len(sigs)), nil
}

func (r *RPC) GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]solana.PrioritizationFee, error) {
	if r.GetRecentPrioritizationFeesFunc != nil {
		return r.GetRecentPrioritizationFeesFunc(ctx, accounts)
	}
	return nil, nil
}

func (r *RPC) GetTokenLargestAccounts(ctx context.Context, mint string) ([]solana.TokenAccountBalance, error) {
	if r.GetTokenLargestAccountsFunc != nil {
		return r.GetTokenLargestAccountsFunc(ctx, mint)
	}
	return nil, nil
}

func (r *RPC) GetTokenSupply(ctx context.Context, mint string) (*solana.TokenAmount, error) {
	if r.GetTokenSupplyFunc != nil {
		return r.GetTokenSupplyFunc(ctx, mint)
	}
	return &solana.TokenAmount{Amount: "1000000000000000", Decimals: 6, UIAmount: 1e9}, nil
}

func (r *RPC) GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error) {
	if r.GetAccountInfoFunc != nil {
		return r.GetAccountInfoFunc(ctx, pubkey)
	}
	return nil, nil
}

func (r *RPC) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	if r.GetBalanceFunc != nil {
		return r.GetBalanceFunc(ctx, pubkey)
	}
	return 0, nil
}
