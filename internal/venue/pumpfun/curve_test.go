package pumpfun

import (
	"encoding/binary"
	"testing"
)

func encodeCurve(s CurveState) []byte {
	data := make([]byte, curveAccountSize)
	binary.LittleEndian.PutUint64(data[8:], s.VirtualTokenReserves)
	binary.LittleEndian.PutUint64(data[16:], s.VirtualSolReserves)
	binary.LittleEndian.PutUint64(data[24:], s.RealTokenReserves)
	binary.LittleEndian.PutUint64(data[32:], s.RealSolReserves)
	binary.LittleEndian.PutUint64(data[40:], s.TokenTotalSupply)
	if s.Complete {
		data[48] = 1
	}
	return data
}

func freshCurve() CurveState {
	return CurveState{
		VirtualTokenReserves: initialVirtualTokenReserves,
		VirtualSolReserves:   initialVirtualSolReserves,
		RealTokenReserves:    initialRealTokenReserves,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

func TestParseCurveState_RoundTrip(t *testing.T) {
	want := CurveState{
		VirtualTokenReserves: 900_000_000_000_000,
		VirtualSolReserves:   40_000_000_000,
		RealTokenReserves:    600_000_000_000_000,
		RealSolReserves:      10_000_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
		Complete:             true,
	}

	got, err := ParseCurveState(encodeCurve(want))
	if err != nil {
		t.Fatalf("ParseCurveState failed: %v", err)
	}
	if *got != want {
		t.Errorf("ParseCurveState mismatch:\n got %+v\nwant %+v", *got, want)
	}
}

func TestParseCurveState_TooShort(t *testing.T) {
	if _, err := ParseCurveState(make([]byte, curveAccountSize-1)); err == nil {
		t.Error("truncated account should fail")
	}
}

func TestParseCurveState_ZeroReserves(t *testing.T) {
	if _, err := ParseCurveState(make([]byte, curveAccountSize)); err == nil {
		t.Error("zero virtual token reserves should fail")
	}
}

func TestSpotPrice_FreshCurve(t *testing.T) {
	s := freshCurve()
	price := s.SpotPrice()

	// 30 SOL / 1.073B tokens at launch.
	want := 30.0 / 1_073_000_000.0
	if price < want*0.999 || price > want*1.001 {
		t.Errorf("Expected launch price %.12f, got %.12f", want, price)
	}
}

func TestProgressPercent(t *testing.T) {
	s := freshCurve()
	if p := s.ProgressPercent(); p != 0 {
		t.Errorf("fresh curve should be at 0%%, got %.2f", p)
	}

	s.RealTokenReserves = initialRealTokenReserves / 2
	if p := s.ProgressPercent(); p < 49.9 || p > 50.1 {
		t.Errorf("half-sold curve should be at 50%%, got %.2f", p)
	}

	s.Complete = true
	if p := s.ProgressPercent(); p != 100 {
		t.Errorf("complete curve reports 100%%, got %.2f", p)
	}
}

func TestProgressPercent_ReservesAboveBootstrap(t *testing.T) {
	// Some curves launch with more real reserves than the bootstrap
	// constant; the unsold surplus must clamp to 0, not wrap.
	s := freshCurve()
	s.RealTokenReserves = initialRealTokenReserves + 1_000_000
	if p := s.ProgressPercent(); p != 0 {
		t.Errorf("over-reserved curve should clamp to 0%%, got %.2f", p)
	}
}

func TestTokensOut_ConstantProduct(t *testing.T) {
	s := freshCurve()

	out := s.TokensOut(1 * LamportsPerSol)
	if out == 0 {
		t.Fatal("buying 1 SOL on a fresh curve should return tokens")
	}

	// k must hold: output matches vt - k/(vs+in).
	vs := float64(s.VirtualSolReserves)
	vt := float64(s.VirtualTokenReserves)
	want := vt - (vs*vt)/(vs+float64(LamportsPerSol))
	got := float64(out)
	if got < want-1 || got > want+1 {
		t.Errorf("Expected ~%.0f tokens, got %d", want, out)
	}

	// A larger buy gets a worse average price.
	bigger := s.TokensOut(10 * LamportsPerSol)
	if float64(bigger) >= got*10 {
		t.Errorf("10x input should yield less than 10x output: %d vs %d", bigger, out)
	}
}

func TestTokensOut_CappedByRealReserves(t *testing.T) {
	s := freshCurve()
	s.RealTokenReserves = 1_000_000 // nearly sold out

	out := s.TokensOut(100 * LamportsPerSol)
	if out > s.RealTokenReserves {
		t.Errorf("output %d exceeds real reserves %d", out, s.RealTokenReserves)
	}
}

func TestSolOut_RoundTripLosesToSlippage(t *testing.T) {
	s := freshCurve()

	lamportsIn := uint64(1 * LamportsPerSol)
	tokens := s.TokensOut(lamportsIn)

	// Selling straight back on the same reserves returns less than went
	// in (the buy moved the hypothetical price).
	back := s.SolOut(tokens)
	if back >= lamportsIn {
		t.Errorf("round trip should lose to slippage: in %d, back %d", lamportsIn, back)
	}
	if back < lamportsIn*9/10 {
		t.Errorf("small trade slippage should be modest: in %d, back %d", lamportsIn, back)
	}
}

func TestMarketCapSol(t *testing.T) {
	s := freshCurve()
	mc := s.MarketCapSol()

	// 1B token supply at the launch price of ~2.796e-8 SOL.
	if mc < 27 || mc > 29 {
		t.Errorf("Expected launch market cap ~28 SOL, got %.2f", mc)
	}
}
