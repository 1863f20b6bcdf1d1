package solana

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// Well-known program addresses.
var (
	SystemProgram        = MustPubkey("11111111111111111111111111111111")
	ComputeBudgetProgram = MustPubkey("ComputeBudget111111111111111111111111111111")
	TokenProgram         = MustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	Pubkey   Pubkey
	Signer   bool
	Writable bool
}

// Instruction is one program invocation.
type Instruction struct {
	ProgramID Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// SetComputeUnitLimit builds a ComputeBudget instruction capping compute units.
func SetComputeUnitLimit(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{ProgramID: ComputeBudgetProgram, Data: data}
}

// SetComputeUnitPrice builds a ComputeBudget instruction setting the
// priority fee in micro-lamports per compute unit.
func SetComputeUnitPrice(microLamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return Instruction{ProgramID: ComputeBudgetProgram, Data: data}
}

// Transfer builds a System Program lamport transfer.
func Transfer(from, to Pubkey, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], 2) // transfer discriminant
	binary.LittleEndian.PutUint64(data[4:], lamports)
	return Instruction{
		ProgramID: SystemProgram,
		Accounts: []AccountMeta{
			{Pubkey: from, Signer: true, Writable: true},
			{Pubkey: to, Writable: true},
		},
		Data: data,
	}
}

// compiledAccount tracks merged privileges for one account across instructions.
type compiledAccount struct {
	pubkey   Pubkey
	signer   bool
	writable bool
}

// Transaction is a signed legacy transaction ready for submission.
type Transaction struct {
	Signature string // base58 primary signature, the transaction id
	wire      []byte
}

// Base64 returns the wire encoding expected by sendTransaction.
func (t *Transaction) Base64() string {
	return base64.StdEncoding.EncodeToString(t.wire)
}

// BuildTransaction compiles instructions into a legacy message anchored at
// blockhash, signed by the wallet (the fee payer). The signed payload is
// immutable: resubmitting it is idempotent because the cluster rejects a
// transaction id it has already processed.
func BuildTransaction(wallet *Wallet, blockhash string, instructions []Instruction) (*Transaction, error) {
	if len(instructions) == 0 {
		return nil, fmt.Errorf("no instructions")
	}

	recentBlockhash, err := base58.Decode(blockhash)
	if err != nil {
		return nil, fmt.Errorf("decode blockhash: %w", err)
	}
	if len(recentBlockhash) != 32 {
		return nil, fmt.Errorf("blockhash must be 32 bytes, got %d", len(recentBlockhash))
	}

	accounts := compileAccounts(wallet.Pubkey(), instructions)

	index := make(map[Pubkey]int, len(accounts))
	for i, a := range accounts {
		index[a.pubkey] = i
	}

	var numSigned, numReadonlySigned, numReadonlyUnsigned int
	for _, a := range accounts {
		if a.signer {
			numSigned++
			if !a.writable {
				numReadonlySigned++
			}
		} else if !a.writable {
			numReadonlyUnsigned++
		}
	}

	var msg bytes.Buffer
	msg.WriteByte(byte(numSigned))
	msg.WriteByte(byte(numReadonlySigned))
	msg.WriteByte(byte(numReadonlyUnsigned))

	writeCompactU16(&msg, len(accounts))
	for _, a := range accounts {
		msg.Write(a.pubkey[:])
	}

	msg.Write(recentBlockhash)

	writeCompactU16(&msg, len(instructions))
	for _, ins := range instructions {
		programIdx, ok := index[ins.ProgramID]
		if !ok {
			return nil, fmt.Errorf("program %s not compiled", ins.ProgramID)
		}
		msg.WriteByte(byte(programIdx))

		writeCompactU16(&msg, len(ins.Accounts))
		for _, acc := range ins.Accounts {
			accIdx, ok := index[acc.Pubkey]
			if !ok {
				return nil, fmt.Errorf("account %s not compiled", acc.Pubkey)
			}
			msg.WriteByte(byte(accIdx))
		}

		writeCompactU16(&msg, len(ins.Data))
		msg.Write(ins.Data)
	}

	signature := wallet.Sign(msg.Bytes())

	var wire bytes.Buffer
	writeCompactU16(&wire, 1) // one signer: the fee payer
	wire.Write(signature)
	wire.Write(msg.Bytes())

	return &Transaction{
		Signature: base58.Encode(signature),
		wire:      wire.Bytes(),
	}, nil
}

// compileAccounts merges account privileges and orders them per the legacy
// message layout: fee payer, writable signers, readonly signers, writable
// non-signers, readonly non-signers, then programs.
func compileAccounts(feePayer Pubkey, instructions []Instruction) []compiledAccount {
	merged := map[Pubkey]*compiledAccount{
		feePayer: {pubkey: feePayer, signer: true, writable: true},
	}
	var order []Pubkey
	order = append(order, feePayer)

	note := func(pk Pubkey, signer, writable bool) {
		a, ok := merged[pk]
		if !ok {
			a = &compiledAccount{pubkey: pk}
			merged[pk] = a
			order = append(order, pk)
		}
		a.signer = a.signer || signer
		a.writable = a.writable || writable
	}

	for _, ins := range instructions {
		for _, acc := range ins.Accounts {
			note(acc.Pubkey, acc.Signer, acc.Writable)
		}
		note(ins.ProgramID, false, false)
	}

	rank := func(a *compiledAccount) int {
		switch {
		case a.pubkey == feePayer:
			return 0
		case a.signer && a.writable:
			return 1
		case a.signer:
			return 2
		case a.writable:
			return 3
		default:
			return 4
		}
	}

	out := make([]compiledAccount, 0, len(order))
	for r := 0; r <= 4; r++ {
		for _, pk := range order {
			a := merged[pk]
			if rank(a) == r {
				out = append(out, *a)
			}
		}
	}
	return out
}

// writeCompactU16 writes the compact-u16 (shortvec) length prefix.
func writeCompactU16(buf *bytes.Buffer, n int) {
	v := uint16(n)
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			buf.WriteByte(b)
			return
		}
		buf.WriteByte(b | 0x80)
	}
}
