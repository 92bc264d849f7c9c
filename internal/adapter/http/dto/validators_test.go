package dto

import (
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimStruct(t *testing.T) {
	name := "  rent  "
	req := UpdateAllocationRequest{Name: &name}
	TrimStruct(&req)
	assert.Equal(t, "rent", *req.Name)

	amt := AmountRequest{ReferenceID: " REF-1 "}
	TrimStruct(&amt)
	assert.Equal(t, "REF-1", amt.ReferenceID)

	// Non-pointers are ignored.
	TrimStruct(amt)
}

func TestValidate_Base58(t *testing.T) {
	valid := TokenVaultRequest{Mint: solana.NewWallet().PublicKey().String()}
	assert.NoError(t, binding.Validator.ValidateStruct(&valid))

	for _, bad := range []string{"", "0OIl", "abc", "not a key"} {
		req := TokenVaultRequest{Mint: bad}
		assert.Error(t, binding.Validator.ValidateStruct(&req), "mint %q", bad)
	}
}

func TestValidate_ReferenceID(t *testing.T) {
	ok := AmountRequest{Amount: 1, ReferenceID: "order_1.a-b"}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	empty := AmountRequest{Amount: 1}
	assert.NoError(t, binding.Validator.ValidateStruct(&empty), "reference is optional")

	bad := AmountRequest{Amount: 1, ReferenceID: "ref with spaces"}
	assert.Error(t, binding.Validator.ValidateStruct(&bad))
}

func TestValidate_AllocName(t *testing.T) {
	pct := 10
	ok := CreateAllocationRequest{Name: "vacation ✈", Percentage: &pct}
	assert.NoError(t, binding.Validator.ValidateStruct(&ok))

	// Length is the ledger's concern.
	long := CreateAllocationRequest{Name: "this name is longer than thirty-two bytes", Percentage: &pct}
	assert.NoError(t, binding.Validator.ValidateStruct(&long))

	ctrl := CreateAllocationRequest{Name: "tab\there", Percentage: &pct}
	assert.Error(t, binding.Validator.ValidateStruct(&ctrl))
}

func TestValidate_JournalOperation(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&JournalQuery{Operation: "DEPOSIT"}))
	assert.NoError(t, binding.Validator.ValidateStruct(&JournalQuery{}))
	assert.Error(t, binding.Validator.ValidateStruct(&JournalQuery{Operation: "REFUND"}))
}

func TestWholeUnits(t *testing.T) {
	assert.Equal(t, "0", WholeUnits(0))
	assert.Equal(t, "0.000000996", WholeUnits(996))
	assert.Equal(t, "10", WholeUnits(10_000_000_000))
	assert.Equal(t, "18446744073.709551615", WholeUnits(^uint64(0)))
}

func TestNewMovementResponse_DisplayOnlyForNative(t *testing.T) {
	res := &ports.MovementResult{Operation: domain.OperationDeposit, Amount: 1_000_000_000, Fee: 4_000_000, Balance: 996_000_000}

	native := NewMovementResponse(res, "")
	assert.Equal(t, "1", native.AmountDisplay)
	assert.Equal(t, "0.004", native.FeeDisplay)
	assert.Equal(t, "0.996", native.BalanceDisplay)

	token := NewMovementResponse(res, solana.NewWallet().PublicKey().String())
	assert.Empty(t, token.AmountDisplay)
	require.NotNil(t, token.MovementResult)
	assert.Equal(t, uint64(1_000_000_000), token.Amount)
}

func TestNewBalanceResponse(t *testing.T) {
	addr := solana.NewWallet().PublicKey().String()
	b := NewBalanceResponse(addr, domain.NativeMint.String(), 1_500_000_000)
	assert.Equal(t, "1.5", b.Display)

	other := NewBalanceResponse(addr, addr, 7)
	assert.Empty(t, other.Display)
}

func TestJournalQuery_Normalize(t *testing.T) {
	q := JournalQuery{}
	q.Normalize()
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageSize, q.PageSize)

	q = JournalQuery{Page: 3, PageSize: 500}
	q.Normalize()
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, MaxPageSize, q.PageSize)
}
