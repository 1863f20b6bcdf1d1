// Package pumpfun encodes the bonding-curve venue: curve state math and
// the buy/sell instruction layout.
package pumpfun

import (
	"encoding/binary"
	"fmt"
)

// Curve bootstrap constants (raw units: tokens have 6 decimals, SOL 9).
const (
	initialVirtualTokenReserves = 1_073_000_000_000_000
	initialVirtualSolReserves   = 30_000_000_000
	initialRealTokenReserves    = 793_100_000_000_000

	LamportsPerSol = 1_000_000_000
	TokenDecimals  = 1_000_000
)

// CurveState is the deserialized bonding-curve account.
type CurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// curveAccountSize is discriminator + five u64 fields + bool.
const curveAccountSize = 8 + 5*8 + 1

// ParseCurveState deserializes a bonding-curve account's data.
func ParseCurveState(data []byte) (*CurveState, error) {
	if len(data) < curveAccountSize {
		return nil, fmt.Errorf("curve account too short: %d bytes", len(data))
	}

	s := &CurveState{
		VirtualTokenReserves: binary.LittleEndian.Uint64(data[8:]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(data[16:]),
		RealTokenReserves:    binary.LittleEndian.Uint64(data[24:]),
		RealSolReserves:      binary.LittleEndian.Uint64(data[32:]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(data[40:]),
		Complete:             data[48] != 0,
	}
	if s.VirtualTokenReserves == 0 {
		return nil, fmt.Errorf("curve has zero virtual token reserves")
	}
	return s, nil
}

// SpotPrice returns the instantaneous price in SOL per token.
func (s *CurveState) SpotPrice() float64 {
	sol := float64(s.VirtualSolReserves) / LamportsPerSol
	tokens := float64(s.VirtualTokenReserves) / TokenDecimals
	return sol / tokens
}

// ProgressPercent returns how far the curve has sold through its real
// token reserves. 100 means ready to graduate to the open market.
func (s *CurveState) ProgressPercent() float64 {
	if s.Complete {
		return 100
	}
	sold := float64(initialRealTokenReserves) - float64(s.RealTokenReserves)
	if sold < 0 {
		sold = 0
	}
	return sold / float64(initialRealTokenReserves) * 100
}

// LiquiditySol returns the real SOL deposited into the curve.
func (s *CurveState) LiquiditySol() float64 {
	return float64(s.RealSolReserves) / LamportsPerSol
}

// MarketCapSol values the full supply at the spot price.
func (s *CurveState) MarketCapSol() float64 {
	return s.SpotPrice() * float64(s.TokenTotalSupply) / TokenDecimals
}

// TokensOut computes the constant-product output for a SOL input.
func (s *CurveState) TokensOut(lamportsIn uint64) uint64 {
	vs := float64(s.VirtualSolReserves)
	vt := float64(s.VirtualTokenReserves)
	out := vt - (vs*vt)/(vs+float64(lamportsIn))
	if out < 0 {
		return 0
	}
	if real := float64(s.RealTokenReserves); out > real {
		out = real
	}
	return uint64(out)
}

// SolOut computes the constant-product output for a token input.
func (s *CurveState) SolOut(tokensIn uint64) uint64 {
	vs := float64(s.VirtualSolReserves)
	vt := float64(s.VirtualTokenReserves)
	out := vs - (vs*vt)/(vt+float64(tokensIn))
	if out < 0 {
		return 0
	}
	return uint64(out)
}
