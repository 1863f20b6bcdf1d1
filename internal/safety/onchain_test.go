package safety

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/errs"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/solana/stub"
	"solana-curve-sniper/internal/venue/pumpfun"
)

const testMint = "So11111111111111111111111111111111111111112"

// mintAccount builds SPL mint data with the given authority flags.
func mintAccount(mintAuthority, freezeAuthority bool) []byte {
	data := make([]byte, mintAccountSize)
	if mintAuthority {
		binary.LittleEndian.PutUint32(data[0:4], 1)
	}
	if freezeAuthority {
		binary.LittleEndian.PutUint32(data[46:50], 1)
	}
	return data
}

func TestFetchSafetyVerdict_Clean(t *testing.T) {
	rpc := &stub.RPC{
		GetAccountInfoFunc: func(_ context.Context, _ string) (*solana.AccountInfo, error) {
			return &solana.AccountInfo{Data: mintAccount(false, false)}, nil
		},
	}
	f := NewOnChainVerdict(rpc)

	v, err := f.FetchSafetyVerdict(context.Background(), testMint)
	if err != nil {
		t.Fatalf("FetchSafetyVerdict failed: %v", err)
	}
	if !v.IsSafe {
		t.Error("revoked authorities should read as safe")
	}
	if len(v.Flags) != 0 {
		t.Errorf("Expected no flags, got %v", v.Flags)
	}
}

func TestFetchSafetyVerdict_ActiveAuthorities(t *testing.T) {
	tests := []struct {
		name         string
		mintAuth     bool
		freezeAuth   bool
		expectedFlag domain.RiskFlag
	}{
		{"mint authority", true, false, domain.FlagMintAuthorityActive},
		{"freeze authority", false, true, domain.FlagFreezeAuthorityActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rpc := &stub.RPC{
				GetAccountInfoFunc: func(_ context.Context, _ string) (*solana.AccountInfo, error) {
					return &solana.AccountInfo{Data: mintAccount(tt.mintAuth, tt.freezeAuth)}, nil
				},
			}
			v, err := NewOnChainVerdict(rpc).FetchSafetyVerdict(context.Background(), testMint)
			if err != nil {
				t.Fatalf("FetchSafetyVerdict failed: %v", err)
			}
			if v.IsSafe {
				t.Error("active authority must be unsafe")
			}
			if len(v.Flags) != 1 || v.Flags[0] != tt.expectedFlag {
				t.Errorf("Expected %s, got %v", tt.expectedFlag, v.Flags)
			}
		})
	}
}

func TestFetchSafetyVerdict_MissingAccount(t *testing.T) {
	f := NewOnChainVerdict(&stub.RPC{}) // default returns nil account
	if _, err := f.FetchSafetyVerdict(context.Background(), testMint); err == nil {
		t.Error("missing mint account should error")
	}
}

func TestFetchHolderConcentration(t *testing.T) {
	mintPk := solana.MustPubkey(testMint)
	_, vault, err := pumpfun.DeriveCurveAccounts(mintPk)
	if err != nil {
		t.Fatalf("derive vault: %v", err)
	}

	holder := func(addr string, amount uint64) solana.TokenAccountBalance {
		return solana.TokenAccountBalance{
			Address:     addr,
			TokenAmount: solana.TokenAmount{Amount: fmt.Sprintf("%d", amount), Decimals: 6},
		}
	}

	rpc := &stub.RPC{
		GetTokenSupplyFunc: func(_ context.Context, _ string) (*solana.TokenAmount, error) {
			return &solana.TokenAmount{Amount: "1000000", Decimals: 6}, nil
		},
		GetTokenLargestAccountsFunc: func(_ context.Context, _ string) ([]solana.TokenAccountBalance, error) {
			return []solana.TokenAccountBalance{
				holder(vault.String(), 600_000), // curve vault, excluded
				holder("holderA", 100_000),
				holder("holderB", 60_000),
				holder("holderC", 40_000),
			}, nil
		},
	}
	f := NewOnChainHolders(rpc)

	h, err := f.FetchHolderConcentration(context.Background(), testMint)
	if err != nil {
		t.Fatalf("FetchHolderConcentration failed: %v", err)
	}
	if h.HolderCount != 3 {
		t.Errorf("vault must not count as a holder, got %d", h.HolderCount)
	}
	// Circulating supply is 400k after excluding the vault's 600k.
	if h.Top1Percent < 24.9 || h.Top1Percent > 25.1 {
		t.Errorf("Expected top1 25%%, got %.2f", h.Top1Percent)
	}
	if h.Top10Percent < 49.9 || h.Top10Percent > 50.1 {
		t.Errorf("Expected top10 50%%, got %.2f", h.Top10Percent)
	}
}

func TestFetchHolderConcentration_VaultHoldsEverything(t *testing.T) {
	mintPk := solana.MustPubkey(testMint)
	_, vault, _ := pumpfun.DeriveCurveAccounts(mintPk)

	rpc := &stub.RPC{
		GetTokenSupplyFunc: func(_ context.Context, _ string) (*solana.TokenAmount, error) {
			return &solana.TokenAmount{Amount: "1000000", Decimals: 6}, nil
		},
		GetTokenLargestAccountsFunc: func(_ context.Context, _ string) ([]solana.TokenAccountBalance, error) {
			return []solana.TokenAccountBalance{{
				Address:     vault.String(),
				TokenAmount: solana.TokenAmount{Amount: "1000000", Decimals: 6},
			}}, nil
		},
	}

	if _, err := NewOnChainHolders(rpc).FetchHolderConcentration(context.Background(), testMint); err == nil {
		t.Error("zero circulating supply should error")
	}
}

func TestBundle_WrapsFailuresAsDataUnavailable(t *testing.T) {
	failing := &stub.RPC{
		GetAccountInfoFunc: func(_ context.Context, _ string) (*solana.AccountInfo, error) {
			return nil, errors.New("rpc down")
		},
		GetTokenSupplyFunc: func(_ context.Context, _ string) (*solana.TokenAmount, error) {
			return nil, errors.New("rpc down")
		},
	}
	b := NewBundle(NewOnChainVerdict(failing), NewOnChainHolders(failing), &StaticReputation{}, time.Second)

	var unavail *errs.DataUnavailableError

	v, err := b.SafetyVerdict(context.Background(), testMint)
	if v != nil || !errors.As(err, &unavail) {
		t.Errorf("Expected nil verdict + DataUnavailableError, got %v / %v", v, err)
	}

	h, err := b.HolderConcentration(context.Background(), testMint)
	if h != nil || !errors.As(err, &unavail) {
		t.Errorf("Expected nil holders + DataUnavailableError, got %v / %v", h, err)
	}

	// StaticReputation never fails.
	r, err := b.ReputationSignal(context.Background(), testMint)
	if err != nil || r == nil {
		t.Errorf("Expected reputation signal, got %v / %v", r, err)
	}
}
