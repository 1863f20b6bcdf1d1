package safety

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"

	"solana-curve-sniper/internal/domain"
	"solana-curve-sniper/internal/solana"
	"solana-curve-sniper/internal/venue/pumpfun"
)

const mintAccountSize = 82

// OnChainVerdict derives a safety verdict from the SPL mint account:
// an active mint or freeze authority is a critical flag.
type OnChainVerdict struct {
	rpc solana.RPCClient
}

func NewOnChainVerdict(rpc solana.RPCClient) *OnChainVerdict {
	return &OnChainVerdict{rpc: rpc}
}

var _ VerdictFetcher = (*OnChainVerdict)(nil)

func (f *OnChainVerdict) FetchSafetyVerdict(ctx context.Context, mint string) (*domain.SafetyVerdict, error) {
	info, err := f.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch mint account: %w", err)
	}
	if info == nil || len(info.Data) < mintAccountSize {
		return nil, fmt.Errorf("mint account %s missing or truncated", mint)
	}

	// SPL mint layout: COption<Pubkey> mint authority at 0, supply,
	// decimals, initialized flag, COption<Pubkey> freeze authority at 46.
	var flags []domain.RiskFlag
	if binary.LittleEndian.Uint32(info.Data[0:4]) != 0 {
		flags = append(flags, domain.FlagMintAuthorityActive)
	}
	if binary.LittleEndian.Uint32(info.Data[46:50]) != 0 {
		flags = append(flags, domain.FlagFreezeAuthorityActive)
	}

	v := &domain.SafetyVerdict{Mint: mint, Flags: flags}
	v.IsSafe = !v.HasCriticalFlag()
	return v, nil
}

// OnChainHolders builds a concentration snapshot from the largest
// holder accounts, excluding the bonding-curve vault which always
// dominates early supply. The holder count is a floor: the endpoint
// caps at 20 accounts.
type OnChainHolders struct {
	rpc solana.RPCClient
}

func NewOnChainHolders(rpc solana.RPCClient) *OnChainHolders {
	return &OnChainHolders{rpc: rpc}
}

var _ HolderFetcher = (*OnChainHolders)(nil)

func (f *OnChainHolders) FetchHolderConcentration(ctx context.Context, mint string) (*domain.HolderConcentration, error) {
	mintPk, err := solana.ParsePubkey(mint)
	if err != nil {
		return nil, fmt.Errorf("parse mint: %w", err)
	}
	_, vault, err := pumpfun.DeriveCurveAccounts(mintPk)
	if err != nil {
		return nil, err
	}

	supplyAmount, err := f.rpc.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch token supply: %w", err)
	}
	supply, err := strconv.ParseFloat(supplyAmount.Amount, 64)
	if err != nil || supply <= 0 {
		return nil, fmt.Errorf("unusable token supply %q", supplyAmount.Amount)
	}

	accounts, err := f.rpc.GetTokenLargestAccounts(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("fetch largest accounts: %w", err)
	}

	vaultAddr := vault.String()
	var top1, top10, held float64
	holders := 0
	for _, a := range accounts {
		amt, err := strconv.ParseFloat(a.Amount, 64)
		if err != nil || amt <= 0 {
			continue
		}
		if a.Address == vaultAddr {
			// Curve-held supply is not a holder.
			supply -= amt
			continue
		}
		holders++
		held += amt
		if amt > top1 {
			top1 = amt
		}
		if holders <= 10 {
			top10 += amt
		}
	}
	if supply <= 0 {
		return nil, fmt.Errorf("curve vault holds entire supply of %s", mint)
	}

	return &domain.HolderConcentration{
		Mint:         mint,
		Top1Percent:  top1 / supply * 100,
		Top10Percent: top10 / supply * 100,
		HolderCount:  holders,
	}, nil
}

// StaticReputation reports a fixed qualifying-wallet count for every
// asset. The real scoring pipeline lives outside this process; this
// implementation keeps the contract satisfied for profiles that only
// scale by signal strength.
type StaticReputation struct {
	Wallets int
}

var _ ReputationFetcher = (*StaticReputation)(nil)

func (s *StaticReputation) FetchReputationSignal(_ context.Context, mint string) (*domain.ReputationSignal, error) {
	return &domain.ReputationSignal{Mint: mint, QualifyingWallet: s.Wallets}, nil
}
