package ports

import (
	"context"
	"time"

	"auto-savings-vault/internal/core/domain"

	"github.com/gagliardetto/solana-go"
)

// SignatureService verifies ed25519 request signatures made with a caller's key.
type SignatureService interface {
	Verify(signer solana.PublicKey, payload string, signature string) bool
	BuildCanonicalString(method, path string, timestamp int64, nonce string, body string) string
}

// TokenService handles JWT read-session tokens.
type TokenService interface {
	Generate(signer solana.PublicKey) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Signer solana.PublicKey
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// NonceStore manages nonce uniqueness for replay attack prevention.
type NonceStore interface {
	// CheckAndSet atomically checks if nonce exists, sets it if not.
	// Returns true if nonce is new (valid), false if already used.
	CheckAndSet(ctx context.Context, signer string, nonce string, ttl time.Duration) (bool, error)
}

// RateLimiter counts requests per key over a window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// LedgerMetrics records ledger activity.
type LedgerMetrics interface {
	ObserveOperation(op domain.Operation, err error)
	AddFees(amount uint64)
	SetTVL(tvl uint64)
	SetReconcileDrift(kind string, drift float64)
}

// --- Service Ports (Business Logic) ---

// SavingsService covers the user ledger lifecycle and native-currency flows.
type SavingsService interface {
	InitializeUser(ctx context.Context, req InitializeUserRequest) (*domain.UserLedger, error)
	UpdateSavingsRate(ctx context.Context, req SavingsRateRequest) (*domain.UserLedger, error)
	Deposit(ctx context.Context, req AmountRequest) (*MovementResult, error)
	Withdraw(ctx context.Context, req AmountRequest) (*MovementResult, error)
	ProcessTransfer(ctx context.Context, req AmountRequest) (*MovementResult, error)
	Deactivate(ctx context.Context, owner, caller solana.PublicKey) (*domain.UserLedger, error)
	Reactivate(ctx context.Context, owner, caller solana.PublicKey) (*domain.UserLedger, error)
}

// TreasuryService covers the authority-gated treasury operations.
type TreasuryService interface {
	Initialize(ctx context.Context, authority solana.PublicKey) (*domain.TreasuryLedger, error)
	Withdraw(ctx context.Context, req TreasuryWithdrawRequest) (*MovementResult, error)
	TogglePause(ctx context.Context, caller solana.PublicKey) (*domain.TreasuryLedger, error)
	UpdateTVLCap(ctx context.Context, caller solana.PublicKey, newCap uint64) (*domain.TreasuryLedger, error)
	CreditWallet(ctx context.Context, req WalletCreditRequest) (*MovementResult, error)
}

// AllocationService is the allocation tracker over a user's pooled vault.
type AllocationService interface {
	Create(ctx context.Context, req CreateAllocationRequest) (*domain.AllocationLedger, error)
	Update(ctx context.Context, req UpdateAllocationRequest) (*domain.AllocationLedger, error)
	Remove(ctx context.Context, owner, caller solana.PublicKey, index int) (*domain.AllocationLedger, error)
	Deposit(ctx context.Context, req AmountRequest) (*MovementResult, error)
	Withdraw(ctx context.Context, req AllocationWithdrawRequest) (*MovementResult, error)
}

// TokenVaultService covers secondary-asset vaults and auto-swap preferences.
type TokenVaultService interface {
	Initialize(ctx context.Context, owner, caller, mint solana.PublicKey) (*domain.TokenVault, error)
	Deposit(ctx context.Context, req TokenAmountRequest) (*MovementResult, error)
	Withdraw(ctx context.Context, req TokenAmountRequest) (*MovementResult, error)
	ConfigureAutoSwap(ctx context.Context, req AutoSwapRequest) (*domain.SwapConfig, error)
}

// ReportingService defines read-only queries.
type ReportingService interface {
	GetProgramStats(ctx context.Context) (*ProgramStats, error)
	GetTreasury(ctx context.Context) (*domain.TreasuryLedger, error)
	GetUser(ctx context.Context, owner solana.PublicKey) (*UserView, error)
	GetAllocations(ctx context.Context, owner solana.PublicKey) (*domain.AllocationLedger, error)
	GetTokenVault(ctx context.Context, owner, mint solana.PublicKey) (*TokenVaultView, error)
	GetBalance(ctx context.Context, address, mint solana.PublicKey) (uint64, error)
	ListJournal(ctx context.Context, params JournalListParams) ([]domain.JournalEntry, int64, error)
}

// AuthService exchanges a signed login challenge for a read-session token.
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (string, time.Time, error) // token, expiry, error
}

// AuditService records audit entries.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// InitializeUserRequest holds input for user ledger creation.
type InitializeUserRequest struct {
	Owner       solana.PublicKey
	SavingsRate uint8
}

// SavingsRateRequest holds input for a savings rate change.
type SavingsRateRequest struct {
	Owner       solana.PublicKey
	Caller      solana.PublicKey
	SavingsRate uint8
}

// AmountRequest holds validated input for a native-currency movement.
// Caller is the verified request signer; Owner comes from the route.
type AmountRequest struct {
	Owner       solana.PublicKey
	Caller      solana.PublicKey
	Amount      uint64
	ReferenceID string
}

// AllocationWithdrawRequest holds input for withdraw_from_allocation.
type AllocationWithdrawRequest struct {
	AmountRequest
	Index int
}

// CreateAllocationRequest holds input for a new allocation.
type CreateAllocationRequest struct {
	Owner      solana.PublicKey
	Caller     solana.PublicKey
	Name       string
	Percentage uint8
}

// UpdateAllocationRequest holds input for an allocation edit. Nil fields are unchanged.
type UpdateAllocationRequest struct {
	Owner      solana.PublicKey
	Caller     solana.PublicKey
	Index      int
	Name       *string
	Percentage *uint8
}

// TreasuryWithdrawRequest holds input for withdraw_treasury.
type TreasuryWithdrawRequest struct {
	Caller      solana.PublicKey
	Amount      uint64
	ReferenceID string
}

// WalletCreditRequest funds an externally-owned wallet from outside the ledger.
type WalletCreditRequest struct {
	Caller  solana.PublicKey
	Address solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// TokenAmountRequest holds input for a secondary-asset movement.
type TokenAmountRequest struct {
	Owner       solana.PublicKey
	Caller      solana.PublicKey
	Mint        solana.PublicKey
	Amount      uint64
	ReferenceID string
}

// AutoSwapRequest holds auto-swap preferences.
type AutoSwapRequest struct {
	Owner      solana.PublicKey
	Caller     solana.PublicKey
	Enabled    bool
	TargetMint solana.PublicKey
	MinAmount  uint64
}

// LoginRequest is a signed login challenge.
type LoginRequest struct {
	Signer    solana.PublicKey
	Timestamp int64
	Signature string
}

// MovementResult is the response of a fund movement, cached for idempotent replay.
type MovementResult struct {
	Operation   domain.Operation      `json:"operation"`
	ReferenceID string                `json:"reference_id,omitempty"`
	Amount      uint64                `json:"amount"`
	Fee         uint64                `json:"fee"`
	Net         uint64                `json:"net"`
	Balance     uint64                `json:"balance"`
	Entries     []domain.JournalEntry `json:"entries"`
}

// ProgramStats holds protocol-wide aggregates.
type ProgramStats struct {
	TotalUsers         int64  `json:"total_users"`
	ActiveUsers        int64  `json:"active_users"`
	TotalFeesCollected uint64 `json:"total_fees_collected"`
	TreasuryBalance    uint64 `json:"treasury_balance"`
	TotalTVL           uint64 `json:"total_tvl"`
	TVLCap             uint64 `json:"tvl_cap"`
	IsPaused           bool   `json:"is_paused"`
}

// UserView is a user ledger with its vault balance.
type UserView struct {
	Ledger       domain.UserLedger `json:"ledger"`
	VaultAddress solana.PublicKey  `json:"vault_address"`
	VaultBalance uint64            `json:"vault_balance"`
}

// TokenVaultView is a token vault with its balance.
type TokenVaultView struct {
	Vault   domain.TokenVault `json:"vault"`
	Balance uint64            `json:"balance"`
}
