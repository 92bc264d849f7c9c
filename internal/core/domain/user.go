package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	MinSavingsRate uint8 = 1
	MaxSavingsRate uint8 = 90
)

// UserLedger is a user's savings record. It lives at the address derived from
// ("config", owner) and points at the vault derived from ("vault", owner).
type UserLedger struct {
	Address          solana.PublicKey `json:"address"`
	Owner            solana.PublicKey `json:"owner"`
	SavingsRate      uint8            `json:"savings_rate"`
	TotalSaved       uint64           `json:"total_saved"`
	TotalWithdrawn   uint64           `json:"total_withdrawn"`
	TransactionCount uint64           `json:"transaction_count"`
	IsActive         bool             `json:"is_active"`
	Bump             uint8            `json:"bump"`
	VaultBump        uint8            `json:"vault_bump"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ValidSavingsRate reports whether rate is inside [MinSavingsRate, MaxSavingsRate].
func ValidSavingsRate(rate uint8) bool {
	return rate >= MinSavingsRate && rate <= MaxSavingsRate
}
