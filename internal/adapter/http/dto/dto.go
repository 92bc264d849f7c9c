package dto

import (
	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/shopspring/decimal"
)

const (
	// NativeDecimals is the number of base units per whole native unit, as a power of ten.
	NativeDecimals = 9

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// LoginRequest is a wallet-signed login challenge.
type LoginRequest struct {
	Signer    string `json:"signer" binding:"required,base58"`
	Timestamp int64  `json:"timestamp" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// SavingsRateRequest is the body of initialize_user and update_savings_rate.
// The rate is range-checked by the ledger, so any integer is accepted here.
type SavingsRateRequest struct {
	SavingsRate *int `json:"savings_rate" binding:"required"`
}

// AmountRequest is the body of every native-currency movement.
type AmountRequest struct {
	Amount      uint64 `json:"amount"`
	ReferenceID string `json:"reference_id,omitempty" binding:"omitempty,max=64,safe_id"`
}

// TVLCapRequest is the body of update_tvl_cap.
type TVLCapRequest struct {
	TVLCap *uint64 `json:"tvl_cap" binding:"required"`
}

// CreateAllocationRequest is the body of create_allocation.
type CreateAllocationRequest struct {
	Name       string `json:"name" binding:"alloc_name"`
	Percentage *int   `json:"percentage" binding:"required"`
}

// UpdateAllocationRequest is the body of update_allocation. Omitted fields stay unchanged.
type UpdateAllocationRequest struct {
	Name       *string `json:"name,omitempty" binding:"omitempty,alloc_name"`
	Percentage *int    `json:"percentage,omitempty"`
}

// TokenVaultRequest is the body of initialize_token_vault.
type TokenVaultRequest struct {
	Mint string `json:"mint" binding:"required,base58"`
}

// AutoSwapRequest is the body of set_auto_swap.
type AutoSwapRequest struct {
	Enabled    bool   `json:"enabled"`
	TargetMint string `json:"target_mint" binding:"required,base58"`
	MinAmount  uint64 `json:"min_amount"`
}

// WalletCreditRequest is the body of a host wallet credit. An empty mint means native.
type WalletCreditRequest struct {
	Mint   string `json:"mint,omitempty" binding:"omitempty,base58"`
	Amount uint64 `json:"amount"`
}

// JournalQuery holds the journal listing filters.
type JournalQuery struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Operation string `form:"operation" binding:"omitempty,oneof=DEPOSIT WITHDRAW PROCESS_TRANSFER ALLOCATION_DEPOSIT ALLOCATION_WITHDRAW TREASURY_WITHDRAW TOKEN_DEPOSIT TOKEN_WITHDRAW WALLET_CREDIT"`
}

// Normalize applies the default page and clamps the page size.
func (q *JournalQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
}

// MovementResponse is a fund movement result with whole-unit display values.
type MovementResponse struct {
	*ports.MovementResult
	AmountDisplay  string `json:"amount_display,omitempty"`
	FeeDisplay     string `json:"fee_display,omitempty"`
	BalanceDisplay string `json:"balance_display,omitempty"`
}

// UserResponse is a user ledger with its vault balance.
type UserResponse struct {
	*ports.UserView
	VaultBalanceDisplay string `json:"vault_balance_display"`
	TotalSavedDisplay   string `json:"total_saved_display"`
}

// StatsResponse is the protocol-wide stats view.
type StatsResponse struct {
	*ports.ProgramStats
	TotalTVLDisplay        string `json:"total_tvl_display"`
	TVLCapDisplay          string `json:"tvl_cap_display"`
	TotalFeesDisplay       string `json:"total_fees_collected_display"`
	TreasuryBalanceDisplay string `json:"treasury_balance_display"`
}

// BalanceResponse is a single balance book entry.
type BalanceResponse struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Amount  uint64 `json:"amount"`
	Display string `json:"display,omitempty"`
}

// WholeUnits renders base units of the native currency as a decimal string.
func WholeUnits(amount uint64) string {
	return decimal.NewFromUint64(amount).Shift(-NativeDecimals).String()
}

// NewMovementResponse decorates res. Display values are only filled for native movements.
func NewMovementResponse(res *ports.MovementResult, mint string) MovementResponse {
	out := MovementResponse{MovementResult: res}
	if mint != "" && mint != domain.NativeMint.String() {
		return out
	}
	out.AmountDisplay = WholeUnits(res.Amount)
	out.FeeDisplay = WholeUnits(res.Fee)
	out.BalanceDisplay = WholeUnits(res.Balance)
	return out
}

// NewUserResponse decorates a user view.
func NewUserResponse(v *ports.UserView) UserResponse {
	return UserResponse{
		UserView:            v,
		VaultBalanceDisplay: WholeUnits(v.VaultBalance),
		TotalSavedDisplay:   WholeUnits(v.Ledger.TotalSaved),
	}
}

// NewStatsResponse decorates program stats.
func NewStatsResponse(s *ports.ProgramStats) StatsResponse {
	return StatsResponse{
		ProgramStats:           s,
		TotalTVLDisplay:        WholeUnits(s.TotalTVL),
		TVLCapDisplay:          WholeUnits(s.TVLCap),
		TotalFeesDisplay:       WholeUnits(s.TotalFeesCollected),
		TreasuryBalanceDisplay: WholeUnits(s.TreasuryBalance),
	}
}

// NewBalanceResponse builds a balance view.
func NewBalanceResponse(address, mint string, amount uint64) BalanceResponse {
	out := BalanceResponse{Address: address, Mint: mint, Amount: amount}
	if mint == domain.NativeMint.String() {
		out.Display = WholeUnits(amount)
	}
	return out
}
