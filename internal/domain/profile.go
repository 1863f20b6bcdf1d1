package domain

import "time"

// RiskProfile is the immutable risk parameter set selected at startup.
type RiskProfile struct {
	Name string

	MaturationDelay time.Duration

	BasePositionSol float64
	MinPositionSol  float64
	MaxPositionSol  float64

	MaxOpenPositions     int
	MaxDailyTrades       int
	DailyLossFloorSol    float64 // negative; trips the breaker at or below
	ConsecutiveLossLimit int

	StopLossPct     float64 // e.g. 0.12 → stop at entry*(1-0.12)
	TrailingStopPct float64
	TakeProfits     []TakeProfitLevel

	MinLiquiditySol     float64
	MinMarketCapSol     float64
	MaxBondingProgress  float64 // beyond this the curve is about to graduate
	MinBondingProgress  float64
	MaxTop1HolderPct    float64
	MaxTop10HolderPct   float64
	MinHolderCount      int
	RequireSmartWallet  bool // require at least one qualifying wallet
	SlippageTolerancePct float64
}

// Built-in profiles. Values follow the venue convention: the aggressive
// profile trades small and fast, the conservative one waits out the
// noisy launch window and demands stronger confirmation.
var (
	ProfileAggressive = RiskProfile{
		Name:                 "AGGRESSIVE",
		MaturationDelay:      30 * time.Second,
		BasePositionSol:      0.5,
		MinPositionSol:       0.1,
		MaxPositionSol:       1.0,
		MaxOpenPositions:     5,
		MaxDailyTrades:       40,
		DailyLossFloorSol:    -3.0,
		ConsecutiveLossLimit: 5,
		StopLossPct:          0.15,
		TrailingStopPct:      0.20,
		TakeProfits: []TakeProfitLevel{
			{PriceMultiple: 2.0, FractionToSell: 0.25},
			{PriceMultiple: 3.0, FractionToSell: 0.25},
			{PriceMultiple: 5.0, FractionToSell: 0.25},
		},
		MinLiquiditySol:      5,
		MinMarketCapSol:      2,
		MinBondingProgress:   2,
		MaxBondingProgress:   90,
		MaxTop1HolderPct:     15,
		MaxTop10HolderPct:    30,
		MinHolderCount:       10,
		RequireSmartWallet:   false,
		SlippageTolerancePct: 5,
	}

	ProfileBalanced = RiskProfile{
		Name:                 "BALANCED",
		MaturationDelay:      120 * time.Second,
		BasePositionSol:      0.3,
		MinPositionSol:       0.1,
		MaxPositionSol:       0.6,
		MaxOpenPositions:     3,
		MaxDailyTrades:       20,
		DailyLossFloorSol:    -2.0,
		ConsecutiveLossLimit: 4,
		StopLossPct:          0.12,
		TrailingStopPct:      0.15,
		TakeProfits: []TakeProfitLevel{
			{PriceMultiple: 2.0, FractionToSell: 0.25},
			{PriceMultiple: 3.0, FractionToSell: 0.25},
			{PriceMultiple: 4.0, FractionToSell: 0.50},
		},
		MinLiquiditySol:      10,
		MinMarketCapSol:      5,
		MinBondingProgress:   5,
		MaxBondingProgress:   85,
		MaxTop1HolderPct:     10,
		MaxTop10HolderPct:    20,
		MinHolderCount:       25,
		RequireSmartWallet:   true,
		SlippageTolerancePct: 3,
	}

	ProfileConservative = RiskProfile{
		Name:                 "CONSERVATIVE",
		MaturationDelay:      300 * time.Second,
		BasePositionSol:      0.2,
		MinPositionSol:       0.05,
		MaxPositionSol:       0.4,
		MaxOpenPositions:     2,
		MaxDailyTrades:       10,
		DailyLossFloorSol:    -1.0,
		ConsecutiveLossLimit: 3,
		StopLossPct:          0.10,
		TrailingStopPct:      0.12,
		TakeProfits: []TakeProfitLevel{
			{PriceMultiple: 1.5, FractionToSell: 0.50},
			{PriceMultiple: 2.5, FractionToSell: 0.50},
		},
		MinLiquiditySol:      20,
		MinMarketCapSol:      10,
		MinBondingProgress:   10,
		MaxBondingProgress:   75,
		MaxTop1HolderPct:     8,
		MaxTop10HolderPct:    18,
		MinHolderCount:       50,
		RequireSmartWallet:   true,
		SlippageTolerancePct: 2,
	}
)

// ProfileByName returns a built-in profile, defaulting to BALANCED.
func ProfileByName(name string) RiskProfile {
	switch name {
	case "AGGRESSIVE":
		return ProfileAggressive
	case "CONSERVATIVE":
		return ProfileConservative
	default:
		return ProfileBalanced
	}
}
