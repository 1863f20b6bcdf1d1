package discovery

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func borshString(s string) []byte {
	out := make([]byte, 4+len(s))
	binary.LittleEndian.PutUint32(out, uint32(len(s)))
	copy(out[4:], s)
	return out
}

func encodeCreateEvent(name, symbol, uri string, mint, curve, creator [32]byte) string {
	data := append([]byte{}, createEventDiscriminator...)
	data = append(data, borshString(name)...)
	data = append(data, borshString(symbol)...)
	data = append(data, borshString(uri)...)
	data = append(data, mint[:]...)
	data = append(data, curve[:]...)
	data = append(data, creator[:]...)
	return programDataPrefix + base64.StdEncoding.EncodeToString(data)
}

func TestParseCreateEvent(t *testing.T) {
	var mint, curve, creator [32]byte
	mint[0], curve[0], creator[0] = 1, 2, 3

	logs := []string{
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P invoke [1]",
		"Program log: Instruction: Create",
		encodeCreateEvent("Moon Cat", "MCAT", "https://example.com/meta.json", mint, curve, creator),
		"Program 6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P success",
	}

	ev := ParseCreateEvent(logs)
	if ev == nil {
		t.Fatal("Expected a create event")
	}
	if ev.Name != "Moon Cat" || ev.Symbol != "MCAT" {
		t.Errorf("Expected Moon Cat/MCAT, got %s/%s", ev.Name, ev.Symbol)
	}
	if ev.URI != "https://example.com/meta.json" {
		t.Errorf("URI mismatch: %s", ev.URI)
	}
	if ev.Mint != base58.Encode(mint[:]) {
		t.Errorf("Mint mismatch: %s", ev.Mint)
	}
	if ev.BondingCurve != base58.Encode(curve[:]) {
		t.Errorf("BondingCurve mismatch: %s", ev.BondingCurve)
	}
	if ev.Creator != base58.Encode(creator[:]) {
		t.Errorf("Creator mismatch: %s", ev.Creator)
	}
}

func TestParseCreateEvent_NoEvent(t *testing.T) {
	logs := []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program log: Instruction: Transfer",
	}
	if ev := ParseCreateEvent(logs); ev != nil {
		t.Errorf("Expected nil for unrelated logs, got %+v", ev)
	}
}

func TestParseCreateEvent_WrongDiscriminator(t *testing.T) {
	payload := append([]byte{9, 9, 9, 9, 9, 9, 9, 9}, borshString("x")...)
	logs := []string{programDataPrefix + base64.StdEncoding.EncodeToString(payload)}
	if ev := ParseCreateEvent(logs); ev != nil {
		t.Errorf("Expected nil for wrong discriminator, got %+v", ev)
	}
}

func TestParseCreateEvent_Truncated(t *testing.T) {
	data := append([]byte{}, createEventDiscriminator...)
	data = append(data, borshString("Half")...)
	logs := []string{programDataPrefix + base64.StdEncoding.EncodeToString(data)}
	if ev := ParseCreateEvent(logs); ev != nil {
		t.Errorf("Expected nil for truncated event, got %+v", ev)
	}
}

func TestParseCreateEvent_BadBase64Skipped(t *testing.T) {
	var mint, curve, creator [32]byte
	logs := []string{
		programDataPrefix + "!!!not-base64!!!",
		encodeCreateEvent("Valid", "VAL", "", mint, curve, creator),
	}
	ev := ParseCreateEvent(logs)
	if ev == nil || ev.Name != "Valid" {
		t.Error("parser should skip undecodable lines and keep scanning")
	}
}
