package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// NativeMint identifies the native currency in the balance book.
var NativeMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")

// TokenVault is a per-user, per-asset vault record at ("token_vault", owner, mint).
type TokenVault struct {
	Address        solana.PublicKey `json:"address"`
	Owner          solana.PublicKey `json:"owner"`
	Mint           solana.PublicKey `json:"mint"`
	Bump           uint8            `json:"bump"`
	TotalDeposited uint64           `json:"total_deposited"`
	TotalWithdrawn uint64           `json:"total_withdrawn"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// SwapConfig records a user's auto-exchange preferences at ("swap_config", owner).
// Enabled stays false: no exchange integration exists to act on it.
type SwapConfig struct {
	Address    solana.PublicKey `json:"address"`
	Owner      solana.PublicKey `json:"owner"`
	TargetMint solana.PublicKey `json:"target_mint"`
	MinAmount  uint64           `json:"min_amount"`
	Enabled    bool             `json:"enabled"`
	Bump       uint8            `json:"bump"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
