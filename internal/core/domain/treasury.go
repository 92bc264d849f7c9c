package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// DefaultTVLCap is 10 whole units of the native currency in base units.
const DefaultTVLCap uint64 = 10_000_000_000

// TreasuryLedger is the protocol-wide fee and TVL record. Exactly one exists per
// program, at the address derived from ("treasury").
type TreasuryLedger struct {
	Address            solana.PublicKey `json:"address"`
	Authority          solana.PublicKey `json:"authority"`
	TotalFeesCollected uint64           `json:"total_fees_collected"`
	Bump               uint8            `json:"bump"`
	VaultBump          uint8            `json:"vault_bump"`
	IsPaused           bool             `json:"is_paused"`
	TotalTVL           uint64           `json:"total_tvl"`
	TVLCap             uint64           `json:"tvl_cap"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}
