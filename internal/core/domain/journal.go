package domain

import (
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// Operation names the ledger operation that produced a journal entry.
type Operation string

const (
	OperationDeposit            Operation = "DEPOSIT"
	OperationWithdraw           Operation = "WITHDRAW"
	OperationProcessTransfer    Operation = "PROCESS_TRANSFER"
	OperationAllocationDeposit  Operation = "ALLOCATION_DEPOSIT"
	OperationAllocationWithdraw Operation = "ALLOCATION_WITHDRAW"
	OperationTreasuryWithdraw   Operation = "TREASURY_WITHDRAW"
	OperationTokenDeposit       Operation = "TOKEN_DEPOSIT"
	OperationTokenWithdraw      Operation = "TOKEN_WITHDRAW"
	OperationWalletCredit       Operation = "WALLET_CREDIT"
)

// Leg describes what a journal entry moved: the protocol fee or the principal.
type Leg string

const (
	LegPrincipal Leg = "PRINCIPAL"
	LegFee       Leg = "FEE"
)

// JournalEntry is an immutable record of one fund movement. A multi-leg
// operation writes one entry per leg inside the same unit of work.
type JournalEntry struct {
	ID          uuid.UUID        `json:"id"`
	Operation   Operation        `json:"operation"`
	Leg         Leg              `json:"leg"`
	ReferenceID string           `json:"reference_id,omitempty"`
	Owner       solana.PublicKey `json:"owner"`
	From        solana.PublicKey `json:"from"`
	To          solana.PublicKey `json:"to"`
	Mint        solana.PublicKey `json:"mint"`
	Amount      uint64           `json:"amount"`
	Digest      string           `json:"digest"`
	CreatedAt   time.Time        `json:"created_at"`
}

// CanonicalBytes is the deterministic encoding the digest is computed over.
func (e *JournalEntry) CanonicalBytes() []byte {
	buf := make([]byte, 0, 16+4*solana.PublicKeyLength+64)
	buf = append(buf, e.ID[:]...)
	buf = append(buf, byte(len(e.Operation)))
	buf = append(buf, e.Operation...)
	buf = append(buf, byte(len(e.Leg)))
	buf = append(buf, e.Leg...)
	buf = append(buf, byte(len(e.ReferenceID)))
	buf = append(buf, e.ReferenceID...)
	buf = append(buf, e.Owner[:]...)
	buf = append(buf, e.From[:]...)
	buf = append(buf, e.To[:]...)
	buf = append(buf, e.Mint[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, e.Amount)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(e.CreatedAt.UnixNano()))
	return buf
}

// Seal computes and stores the entry digest.
func (e *JournalEntry) Seal() {
	sum := sha3.Sum256(e.CanonicalBytes())
	e.Digest = hex.EncodeToString(sum[:])
}

// Verify reports whether the stored digest matches the entry contents.
func (e *JournalEntry) Verify() bool {
	sum := sha3.Sum256(e.CanonicalBytes())
	return e.Digest == hex.EncodeToString(sum[:])
}
