package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	MaxAllocations       = 10
	MaxAllocationNameLen = 32
	MaxAllocationPercent = 100
	MinAllocationPercent = 1
)

// Allocation is a named virtual bucket over the owner's pooled vault. Its totals
// are bookkeeping only; funds are never segregated per allocation.
type Allocation struct {
	Name           string `json:"name"`
	Percentage     uint8  `json:"percentage"`
	IsActive       bool   `json:"is_active"`
	TotalSaved     uint64 `json:"total_saved"`
	TotalWithdrawn uint64 `json:"total_withdrawn"`
}

// Available is the tracked, unreserved balance of the allocation.
func (a Allocation) Available() uint64 {
	if a.TotalWithdrawn > a.TotalSaved {
		return 0
	}
	return a.TotalSaved - a.TotalWithdrawn
}

// AllocationLedger holds a user's ordered allocations, at ("allocation_config", owner).
type AllocationLedger struct {
	Address     solana.PublicKey `json:"address"`
	Owner       solana.PublicKey `json:"owner"`
	Bump        uint8            `json:"bump"`
	Allocations []Allocation     `json:"allocations"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Clone returns a copy that shares no memory with l.
func (l *AllocationLedger) Clone() *AllocationLedger {
	c := *l
	c.Allocations = append([]Allocation(nil), l.Allocations...)
	return &c
}

// ValidAllocationName reports whether name fits the fixed-size record slot.
func ValidAllocationName(name string) bool {
	return len(name) > 0 && len(name) <= MaxAllocationNameLen
}

// ValidAllocationPercent reports whether pct can be assigned to an active allocation.
func ValidAllocationPercent(pct uint8) bool {
	return pct >= MinAllocationPercent && pct <= MaxAllocationPercent
}
