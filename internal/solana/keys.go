package solana

import (
	"crypto/ed25519"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Pubkey is a 32-byte ed25519 public key.
type Pubkey [32]byte

// ParsePubkey decodes a base58 public key.
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	raw, err := base58.Decode(s)
	if err != nil {
		return pk, fmt.Errorf("decode pubkey: %w", err)
	}
	if len(raw) != 32 {
		return pk, fmt.Errorf("pubkey must be 32 bytes, got %d", len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey parses a base58 public key or panics. For package-level
// well-known program addresses only.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// OnCurve reports whether the key is a valid point on the ed25519 curve.
// Program-derived addresses are intentionally off-curve; a wallet or
// mint key that fails this check is malformed.
func (p Pubkey) OnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(p[:])
	return err == nil
}

// Wallet signs transactions with an ed25519 keypair.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  Pubkey
}

// NewWalletFromBase58 builds a wallet from a base58-encoded 64-byte
// private key (the standard exported keypair format).
func NewWalletFromBase58(encoded string) (*Wallet, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	var pub Pubkey
	copy(pub[:], priv.Public().(ed25519.PublicKey))

	if !pub.OnCurve() {
		return nil, fmt.Errorf("derived public key %s is not on the ed25519 curve", pub)
	}

	return &Wallet{priv: priv, pub: pub}, nil
}

// Pubkey returns the wallet's public key.
func (w *Wallet) Pubkey() Pubkey {
	return w.pub
}

// Sign signs a serialized message.
func (w *Wallet) Sign(message []byte) []byte {
	return ed25519.Sign(w.priv, message)
}
