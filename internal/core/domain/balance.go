package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Balance is the holding of one asset at one address. Vaults and wallets are
// both plain balance holders; a missing row reads as zero.
type Balance struct {
	Address   solana.PublicKey `json:"address"`
	Mint      solana.PublicKey `json:"mint"`
	Amount    uint64           `json:"amount"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// BalanceKey identifies a row in the balance book.
type BalanceKey struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
}

// NativeBalanceKey returns the key of the native-currency balance at address.
func NativeBalanceKey(address solana.PublicKey) BalanceKey {
	return BalanceKey{Address: address, Mint: NativeMint}
}
