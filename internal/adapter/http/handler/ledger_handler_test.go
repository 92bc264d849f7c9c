package handler

import (
	"context"
	"net/http"
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/internal/core/ports/mocks"
	"auto-savings-vault/pkg/apperror"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// --- Treasury Handler Tests ---

func TestTreasuryInitialize(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	treasury.EXPECT().Initialize(gomock.Any(), authority).
		Return(&domain.TreasuryLedger{Authority: authority, TVLCap: domain.DefaultTVLCap}, nil)

	c, w := newContext(http.MethodPost, "/api/v1/treasury", "", nil, &authority)
	h.Initialize(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, authority.String(), decode(t, w)["data"].(map[string]interface{})["authority"])
}

func TestTreasuryInitialize_AlreadyInitialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	treasury.EXPECT().Initialize(gomock.Any(), authority).Return(nil, apperror.ErrAlreadyInitialized("Treasury"))

	c, w := newContext(http.MethodPost, "/api/v1/treasury", "", nil, &authority)
	h.Initialize(c)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "LDG_014", decode(t, w)["error_code"])
}

func TestTreasuryWithdraw(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	treasury.EXPECT().Withdraw(gomock.Any(), ports.TreasuryWithdrawRequest{Caller: authority, Amount: 40, ReferenceID: "sweep-1"}).
		Return(&ports.MovementResult{Operation: domain.OperationTreasuryWithdraw, Amount: 40, Net: 40}, nil)

	c, w := newContext(http.MethodPost, "/x", `{"amount":40,"reference_id":"sweep-1"}`, nil, &authority)
	h.Withdraw(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTogglePause(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	treasury.EXPECT().TogglePause(gomock.Any(), authority).Return(&domain.TreasuryLedger{IsPaused: true}, nil)

	c, w := newContext(http.MethodPost, "/x", "", nil, &authority)
	h.TogglePause(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]interface{})["is_paused"])
}

func TestUpdateTVLCap(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	treasury.EXPECT().UpdateTVLCap(gomock.Any(), authority, uint64(0)).Return(nil, apperror.ErrInvalidAmount())

	// A zero cap is forwarded; the ledger decides whether it is below TVL.
	c, w := newContext(http.MethodPut, "/x", `{"tvl_cap":0}`, nil, &authority)
	h.UpdateTVLCap(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LDG_002", decode(t, w)["error_code"])

	c, w = newContext(http.MethodPut, "/x", `{}`, nil, &authority)
	h.UpdateTVLCap(c)
	assert.Equal(t, "REQ_001", decode(t, w)["error_code"])
}

func TestCreditWallet(t *testing.T) {
	ctrl := gomock.NewController(t)
	treasury := mocks.NewMockTreasuryService(ctrl)
	h := NewTreasuryHandler(treasury, mocks.NewMockReportingService(ctrl))

	authority := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	treasury.EXPECT().CreditWallet(gomock.Any(), ports.WalletCreditRequest{Caller: authority, Address: wallet, Amount: 1_000_000_000}).
		Return(&ports.MovementResult{Operation: domain.OperationWalletCredit, Amount: 1_000_000_000, Balance: 1_000_000_000}, nil)
	treasury.EXPECT().CreditWallet(gomock.Any(), ports.WalletCreditRequest{Caller: authority, Address: wallet, Mint: mint, Amount: 5}).
		Return(&ports.MovementResult{Operation: domain.OperationWalletCredit, Amount: 5, Balance: 5}, nil)

	params := gin.Params{{Key: "address", Value: wallet.String()}}

	c, w := newContext(http.MethodPost, "/x", `{"amount":1000000000}`, params, &authority)
	h.CreditWallet(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", decode(t, w)["data"].(map[string]interface{})["amount_display"])

	c, w = newContext(http.MethodPost, "/x", `{"amount":5,"mint":"`+mint.String()+`"}`, params, &authority)
	h.CreditWallet(c)
	require.Equal(t, http.StatusOK, w.Code)
	_, hasDisplay := decode(t, w)["data"].(map[string]interface{})["amount_display"]
	assert.False(t, hasDisplay, "token credits carry no native display value")
}

func TestGetStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporting := mocks.NewMockReportingService(ctrl)
	h := NewTreasuryHandler(mocks.NewMockTreasuryService(ctrl), reporting)

	reporting.EXPECT().GetProgramStats(gomock.Any()).Return(&ports.ProgramStats{
		TotalUsers:         3,
		ActiveUsers:        2,
		TotalFeesCollected: 12,
		TotalTVL:           9_999_999_999,
		TVLCap:             10_000_000_000,
	}, nil)

	c, w := newContext(http.MethodGet, "/api/v1/stats", "", nil, nil)
	h.GetStats(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["total_users"])
	assert.Equal(t, "9.999999999", data["total_tvl_display"])
	assert.Equal(t, "10", data["tvl_cap_display"])
}

func TestGetTreasury_NotInitialized(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporting := mocks.NewMockReportingService(ctrl)
	h := NewTreasuryHandler(mocks.NewMockTreasuryService(ctrl), reporting)

	reporting.EXPECT().GetTreasury(gomock.Any()).Return(nil, apperror.ErrAccountNotFound("Treasury"))

	c, w := newContext(http.MethodGet, "/api/v1/treasury", "", nil, nil)
	h.GetTreasury(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBalance(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporting := mocks.NewMockReportingService(ctrl)
	h := NewTreasuryHandler(mocks.NewMockTreasuryService(ctrl), reporting)

	addr := solana.NewWallet().PublicKey()
	reporting.EXPECT().GetBalance(gomock.Any(), addr, solana.PublicKey{}).Return(uint64(1_500_000_000), nil)

	c, w := newContext(http.MethodGet, "/x", "", gin.Params{{Key: "address", Value: addr.String()}}, &addr)
	h.GetBalance(c)

	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, domain.NativeMint.String(), data["mint"])
	assert.Equal(t, "1.5", data["display"])

	c, w = newContext(http.MethodGet, "/x?mint=bad", "", gin.Params{{Key: "address", Value: addr.String()}}, &addr)
	h.GetBalance(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Allocation Handler Tests ---

func TestCreateAllocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocations := mocks.NewMockAllocationService(ctrl)
	h := NewAllocationHandler(allocations, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	allocations.EXPECT().Create(gomock.Any(), ports.CreateAllocationRequest{Owner: owner, Caller: owner, Name: "rent", Percentage: 60}).
		Return(&domain.AllocationLedger{Owner: owner, Allocations: []domain.Allocation{{Name: "rent", Percentage: 60, IsActive: true}}}, nil)

	c, w := newContext(http.MethodPost, "/x", `{"name":"  rent ","percentage":60}`, ownerParam(owner), &owner)
	h.Create(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateAllocation_PercentageOutOfRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := NewAllocationHandler(mocks.NewMockAllocationService(ctrl), mocks.NewMockReportingService(ctrl))
	owner := solana.NewWallet().PublicKey()

	c, w := newContext(http.MethodPost, "/x", `{"name":"rent","percentage":300}`, ownerParam(owner), &owner)
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LDG_011", decode(t, w)["error_code"])
}

func TestUpdateAllocation_PartialFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocations := mocks.NewMockAllocationService(ctrl)
	h := NewAllocationHandler(allocations, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	allocations.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.UpdateAllocationRequest) (*domain.AllocationLedger, error) {
			assert.Equal(t, 1, req.Index)
			assert.Nil(t, req.Name)
			require.NotNil(t, req.Percentage)
			assert.Equal(t, uint8(30), *req.Percentage)
			return &domain.AllocationLedger{Owner: owner}, nil
		})

	params := append(ownerParam(owner), gin.Param{Key: "index", Value: "1"})
	c, w := newContext(http.MethodPut, "/x", `{"percentage":30}`, params, &owner)
	h.Update(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRemoveAllocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocations := mocks.NewMockAllocationService(ctrl)
	h := NewAllocationHandler(allocations, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	allocations.EXPECT().Remove(gomock.Any(), owner, owner, 4).Return(nil, apperror.ErrAllocationNotFound())

	params := append(ownerParam(owner), gin.Param{Key: "index", Value: "4"})
	c, w := newContext(http.MethodDelete, "/x", "", params, &owner)
	h.Remove(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LDG_009", decode(t, w)["error_code"])

	params = append(ownerParam(owner), gin.Param{Key: "index", Value: "-1"})
	c, w = newContext(http.MethodDelete, "/x", "", params, &owner)
	h.Remove(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAllocationDepositAndWithdraw(t *testing.T) {
	ctrl := gomock.NewController(t)
	allocations := mocks.NewMockAllocationService(ctrl)
	h := NewAllocationHandler(allocations, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	allocations.EXPECT().Deposit(gomock.Any(), ports.AmountRequest{Owner: owner, Caller: owner, Amount: 1000}).
		Return(&ports.MovementResult{Operation: domain.OperationAllocationDeposit, Amount: 1000, Fee: 4, Net: 996}, nil)
	allocations.EXPECT().Withdraw(gomock.Any(), ports.AllocationWithdrawRequest{
		AmountRequest: ports.AmountRequest{Owner: owner, Caller: owner, Amount: 500},
		Index:         0,
	}).Return(nil, apperror.ErrInsufficientFunds())

	c, w := newContext(http.MethodPost, "/x", `{"amount":1000}`, ownerParam(owner), &owner)
	h.Deposit(c)
	assert.Equal(t, http.StatusOK, w.Code)

	params := append(ownerParam(owner), gin.Param{Key: "index", Value: "0"})
	c, w = newContext(http.MethodPost, "/x", `{"amount":500}`, params, &owner)
	h.Withdraw(c)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "LDG_003", decode(t, w)["error_code"])
}

func TestListAllocations(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporting := mocks.NewMockReportingService(ctrl)
	h := NewAllocationHandler(mocks.NewMockAllocationService(ctrl), reporting)

	owner := solana.NewWallet().PublicKey()
	reporting.EXPECT().GetAllocations(gomock.Any(), owner).Return(&domain.AllocationLedger{Owner: owner}, nil)

	c, w := newContext(http.MethodGet, "/x", "", ownerParam(owner), &owner)
	h.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

// --- Token Vault Handler Tests ---

func TestTokenVaultInitialize(t *testing.T) {
	ctrl := gomock.NewController(t)
	vaults := mocks.NewMockTokenVaultService(ctrl)
	h := NewTokenVaultHandler(vaults, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	vaults.EXPECT().Initialize(gomock.Any(), owner, owner, mint).Return(&domain.TokenVault{Owner: owner, Mint: mint}, nil)

	c, w := newContext(http.MethodPost, "/x", `{"mint":"`+mint.String()+`"}`, ownerParam(owner), &owner)
	h.Initialize(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newContext(http.MethodPost, "/x", `{"mint":"xyz"}`, ownerParam(owner), &owner)
	h.Initialize(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenVaultDepositWithdraw(t *testing.T) {
	ctrl := gomock.NewController(t)
	vaults := mocks.NewMockTokenVaultService(ctrl)
	h := NewTokenVaultHandler(vaults, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	params := append(ownerParam(owner), gin.Param{Key: "mint", Value: mint.String()})

	vaults.EXPECT().Deposit(gomock.Any(), ports.TokenAmountRequest{Owner: owner, Caller: owner, Mint: mint, Amount: 100}).
		Return(&ports.MovementResult{Operation: domain.OperationTokenDeposit, Amount: 100, Net: 100, Balance: 100}, nil)
	vaults.EXPECT().Withdraw(gomock.Any(), ports.TokenAmountRequest{Owner: owner, Caller: owner, Mint: mint, Amount: 200}).
		Return(nil, apperror.ErrInsufficientFunds())

	c, w := newContext(http.MethodPost, "/x", `{"amount":100}`, params, &owner)
	h.Deposit(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodPost, "/x", `{"amount":200}`, params, &owner)
	h.Withdraw(c)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestConfigureAutoSwap_ExchangeUnavailable(t *testing.T) {
	ctrl := gomock.NewController(t)
	vaults := mocks.NewMockTokenVaultService(ctrl)
	h := NewTokenVaultHandler(vaults, mocks.NewMockReportingService(ctrl))

	owner := solana.NewWallet().PublicKey()
	target := solana.NewWallet().PublicKey()
	vaults.EXPECT().ConfigureAutoSwap(gomock.Any(), ports.AutoSwapRequest{Owner: owner, Caller: owner, Enabled: true, TargetMint: target, MinAmount: 10}).
		Return(nil, apperror.ErrExchangeUnavailable())

	body := `{"enabled":true,"target_mint":"` + target.String() + `","min_amount":10}`
	c, w := newContext(http.MethodPut, "/x", body, ownerParam(owner), &owner)
	h.ConfigureAutoSwap(c)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "LDG_015", decode(t, w)["error_code"])
}

func TestGetTokenVault(t *testing.T) {
	ctrl := gomock.NewController(t)
	reporting := mocks.NewMockReportingService(ctrl)
	h := NewTokenVaultHandler(mocks.NewMockTokenVaultService(ctrl), reporting)

	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	reporting.EXPECT().GetTokenVault(gomock.Any(), owner, mint).
		Return(&ports.TokenVaultView{Vault: domain.TokenVault{Owner: owner, Mint: mint}, Balance: 9}, nil)

	params := append(ownerParam(owner), gin.Param{Key: "mint", Value: mint.String()})
	c, w := newContext(http.MethodGet, "/x", "", params, &owner)
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(9), decode(t, w)["data"].(map[string]interface{})["balance"])
}
