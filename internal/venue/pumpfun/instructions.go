package pumpfun

import (
	"encoding/binary"
	"fmt"

	"solana-curve-sniper/internal/solana"
)

// Program addresses.
var (
	Program                  = solana.MustPubkey("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	GlobalAccount            = solana.MustPubkey("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uRgwLrNnbg")
	FeeRecipient             = solana.MustPubkey("CebN5WGQ4jvEPvsVU4EoHEpgzq1VV7AbicfhtW4xC9iM")
	EventAuthority           = solana.MustPubkey("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	AssociatedTokenProgram   = solana.MustPubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	RentSysvar               = solana.MustPubkey("SysvarRent111111111111111111111111111111111")
)

// Anchor instruction discriminators (first 8 bytes of sha256("global:<name>")).
var (
	buyDiscriminator  = [8]byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	sellDiscriminator = [8]byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
)

// DeriveCurveAccounts resolves the bonding curve PDA and its token vault
// for a mint.
func DeriveCurveAccounts(mint solana.Pubkey) (curve, vault solana.Pubkey, err error) {
	curve, _, err = solana.FindProgramAddress(
		[][]byte{[]byte("bonding-curve"), mint[:]}, Program)
	if err != nil {
		return curve, vault, fmt.Errorf("derive bonding curve: %w", err)
	}

	vault, _, err = solana.FindProgramAddress(
		[][]byte{curve[:], solana.TokenProgram[:], mint[:]}, AssociatedTokenProgram)
	if err != nil {
		return curve, vault, fmt.Errorf("derive curve vault: %w", err)
	}
	return curve, vault, nil
}

// DeriveUserTokenAccount resolves the user's associated token account.
func DeriveUserTokenAccount(owner, mint solana.Pubkey) (solana.Pubkey, error) {
	ata, _, err := solana.FindProgramAddress(
		[][]byte{owner[:], solana.TokenProgram[:], mint[:]}, AssociatedTokenProgram)
	if err != nil {
		return ata, fmt.Errorf("derive user token account: %w", err)
	}
	return ata, nil
}

// CreateUserTokenAccount builds an idempotent ATA creation instruction,
// safe to include on every buy.
func CreateUserTokenAccount(payer, owner, mint, ata solana.Pubkey) solana.Instruction {
	return solana.Instruction{
		ProgramID: AssociatedTokenProgram,
		Accounts: []solana.AccountMeta{
			{Pubkey: payer, Signer: true, Writable: true},
			{Pubkey: ata, Writable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: solana.SystemProgram},
			{Pubkey: solana.TokenProgram},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}

// Buy builds a bonding-curve buy: amountTokens out for at most maxSolCost
// lamports in. The max-cost bound is the slippage guard.
func Buy(user, mint, curve, vault, userATA solana.Pubkey, amountTokens, maxSolCost uint64) solana.Instruction {
	data := make([]byte, 24)
	copy(data, buyDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:], amountTokens)
	binary.LittleEndian.PutUint64(data[16:], maxSolCost)

	return solana.Instruction{
		ProgramID: Program,
		Accounts: []solana.AccountMeta{
			{Pubkey: GlobalAccount},
			{Pubkey: FeeRecipient, Writable: true},
			{Pubkey: mint},
			{Pubkey: curve, Writable: true},
			{Pubkey: vault, Writable: true},
			{Pubkey: userATA, Writable: true},
			{Pubkey: user, Signer: true, Writable: true},
			{Pubkey: solana.SystemProgram},
			{Pubkey: solana.TokenProgram},
			{Pubkey: RentSysvar},
			{Pubkey: EventAuthority},
			{Pubkey: Program},
		},
		Data: data,
	}
}

// Sell builds a bonding-curve sell: amountTokens in for at least
// minSolOutput lamports out.
func Sell(user, mint, curve, vault, userATA solana.Pubkey, amountTokens, minSolOutput uint64) solana.Instruction {
	data := make([]byte, 24)
	copy(data, sellDiscriminator[:])
	binary.LittleEndian.PutUint64(data[8:], amountTokens)
	binary.LittleEndian.PutUint64(data[16:], minSolOutput)

	return solana.Instruction{
		ProgramID: Program,
		Accounts: []solana.AccountMeta{
			{Pubkey: GlobalAccount},
			{Pubkey: FeeRecipient, Writable: true},
			{Pubkey: mint},
			{Pubkey: curve, Writable: true},
			{Pubkey: vault, Writable: true},
			{Pubkey: userATA, Writable: true},
			{Pubkey: user, Signer: true, Writable: true},
			{Pubkey: solana.SystemProgram},
			{Pubkey: AssociatedTokenProgram},
			{Pubkey: solana.TokenProgram},
			{Pubkey: EventAuthority},
			{Pubkey: Program},
		},
		Data: data,
	}
}
