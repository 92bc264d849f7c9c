package handler

import (
	"context"

	"auto-savings-vault/internal/adapter/http/dto"
	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
	"auto-savings-vault/pkg/response"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// UserHandler serves the user ledger lifecycle and native-currency flows.
type UserHandler struct {
	savings   ports.SavingsService
	reporting ports.ReportingService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(savings ports.SavingsService, reporting ports.ReportingService) *UserHandler {
	return &UserHandler{savings: savings, reporting: reporting}
}

// InitializeUser handles POST /api/v1/users. The signer becomes the owner.
func (h *UserHandler) InitializeUser(c *gin.Context) {
	owner, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.SavingsRateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	rate, err := toUint8(*req.SavingsRate, apperror.ErrInvalidSavingsRate())
	if err != nil {
		response.Error(c, err)
		return
	}

	ledger, err := h.savings.InitializeUser(c.Request.Context(), ports.InitializeUserRequest{
		Owner:       owner,
		SavingsRate: rate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ledger)
}

// UpdateSavingsRate handles PUT /api/v1/users/:owner/savings-rate.
func (h *UserHandler) UpdateSavingsRate(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	var req dto.SavingsRateRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	rate, err := toUint8(*req.SavingsRate, apperror.ErrInvalidSavingsRate())
	if err != nil {
		response.Error(c, err)
		return
	}

	ledger, err := h.savings.UpdateSavingsRate(c.Request.Context(), ports.SavingsRateRequest{
		Owner:       owner,
		Caller:      signer,
		SavingsRate: rate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}

// Deposit handles POST /api/v1/users/:owner/deposit.
func (h *UserHandler) Deposit(c *gin.Context) {
	h.movement(c, h.savings.Deposit)
}

// Withdraw handles POST /api/v1/users/:owner/withdraw.
func (h *UserHandler) Withdraw(c *gin.Context) {
	h.movement(c, h.savings.Withdraw)
}

// ProcessTransfer handles POST /api/v1/users/:owner/transfers.
func (h *UserHandler) ProcessTransfer(c *gin.Context) {
	h.movement(c, h.savings.ProcessTransfer)
}

func (h *UserHandler) movement(c *gin.Context, fn func(ctx context.Context, req ports.AmountRequest) (*ports.MovementResult, error)) {
	req, ok := amountRequest(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, ""))
}

// Deactivate handles POST /api/v1/users/:owner/deactivate.
func (h *UserHandler) Deactivate(c *gin.Context) {
	h.toggle(c, h.savings.Deactivate)
}

// Reactivate handles POST /api/v1/users/:owner/reactivate.
func (h *UserHandler) Reactivate(c *gin.Context) {
	h.toggle(c, h.savings.Reactivate)
}

func (h *UserHandler) toggle(c *gin.Context, fn func(ctx context.Context, owner, caller solana.PublicKey) (*domain.UserLedger, error)) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	ledger, err := fn(c.Request.Context(), owner, signer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}

// GetUser handles GET /api/v1/users/:owner.
func (h *UserHandler) GetUser(c *gin.Context) {
	owner, err := keyParam(c, "owner")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.reporting.GetUser(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewUserResponse(view))
}

// ListJournal handles GET /api/v1/users/:owner/journal.
func (h *UserHandler) ListJournal(c *gin.Context) {
	owner, err := keyParam(c, "owner")
	if err != nil {
		response.Error(c, err)
		return
	}
	var q dto.JournalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	q.Normalize()

	params := ports.JournalListParams{Owner: owner, Page: q.Page, PageSize: q.PageSize}
	if q.Operation != "" {
		op := domain.Operation(q.Operation)
		params.Operation = &op
	}

	entries, total, err := h.reporting.ListJournal(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, entries, q.Page, q.PageSize, total)
}

// ownerAndCaller resolves the route owner and the authenticated signer,
// writing the error response on failure.
func ownerAndCaller(c *gin.Context) (solana.PublicKey, solana.PublicKey, bool) {
	owner, err := keyParam(c, "owner")
	if err != nil {
		response.Error(c, err)
		return solana.PublicKey{}, solana.PublicKey{}, false
	}
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return solana.PublicKey{}, solana.PublicKey{}, false
	}
	return owner, signer, true
}

// amountRequest binds a movement body against the route owner.
func amountRequest(c *gin.Context) (ports.AmountRequest, bool) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return ports.AmountRequest{}, false
	}
	var body dto.AmountRequest
	if err := bindJSON(c, &body); err != nil {
		response.Error(c, err)
		return ports.AmountRequest{}, false
	}
	return ports.AmountRequest{
		Owner:       owner,
		Caller:      signer,
		Amount:      body.Amount,
		ReferenceID: body.ReferenceID,
	}, true
}
