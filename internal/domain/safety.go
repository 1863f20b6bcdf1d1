package domain

// RiskFlag enumerates token-level safety findings.
type RiskFlag string

const (
	FlagMintAuthorityActive   RiskFlag = "MINT_AUTHORITY_ACTIVE"
	FlagFreezeAuthorityActive RiskFlag = "FREEZE_AUTHORITY_ACTIVE"
	FlagLowLiquidity          RiskFlag = "LOW_LIQUIDITY"
	FlagHighConcentration     RiskFlag = "HIGH_CONCENTRATION"
	FlagMetadataMutable       RiskFlag = "METADATA_MUTABLE"
)

// Critical reports whether the flag alone forbids a trade.
func (f RiskFlag) Critical() bool {
	return f == FlagMintAuthorityActive || f == FlagFreezeAuthorityActive
}

// SafetyVerdict is the external safety collaborator's assessment.
// Authoritative and un-cacheable beyond a short TTL.
type SafetyVerdict struct {
	Mint   string
	IsSafe bool
	Flags  []RiskFlag
}

// HasCriticalFlag reports whether any critical flag is present.
func (v *SafetyVerdict) HasCriticalFlag() bool {
	for _, f := range v.Flags {
		if f.Critical() {
			return true
		}
	}
	return false
}

// HolderConcentration is the external holder-distribution snapshot.
type HolderConcentration struct {
	Mint         string
	Top1Percent  float64
	Top10Percent float64
	HolderCount  int
}

// ReputationSignal is the external wallet-reputation verdict: the number
// of qualifying ("smart money") wallets seen buying the asset.
type ReputationSignal struct {
	Mint             string
	QualifyingWallet int
}
