package handler

import (
	"context"

	"auto-savings-vault/internal/adapter/http/dto"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/response"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// TokenVaultHandler serves secondary-asset vaults and auto-swap preferences.
type TokenVaultHandler struct {
	vaults    ports.TokenVaultService
	reporting ports.ReportingService
}

// NewTokenVaultHandler creates a new TokenVaultHandler.
func NewTokenVaultHandler(vaults ports.TokenVaultService, reporting ports.ReportingService) *TokenVaultHandler {
	return &TokenVaultHandler{vaults: vaults, reporting: reporting}
}

// Initialize handles POST /api/v1/users/:owner/token-vaults.
func (h *TokenVaultHandler) Initialize(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	var req dto.TokenVaultRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	vault, err := h.vaults.Initialize(c.Request.Context(), owner, signer, solana.MustPublicKeyFromBase58(req.Mint))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, vault)
}

// Deposit handles POST /api/v1/users/:owner/token-vaults/:mint/deposit.
func (h *TokenVaultHandler) Deposit(c *gin.Context) {
	h.movement(c, h.vaults.Deposit)
}

// Withdraw handles POST /api/v1/users/:owner/token-vaults/:mint/withdraw.
func (h *TokenVaultHandler) Withdraw(c *gin.Context) {
	h.movement(c, h.vaults.Withdraw)
}

func (h *TokenVaultHandler) movement(c *gin.Context, fn func(ctx context.Context, req ports.TokenAmountRequest) (*ports.MovementResult, error)) {
	mint, err := keyParam(c, "mint")
	if err != nil {
		response.Error(c, err)
		return
	}
	req, ok := amountRequest(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), ports.TokenAmountRequest{
		Owner:       req.Owner,
		Caller:      req.Caller,
		Mint:        mint,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, mint.String()))
}

// ConfigureAutoSwap handles PUT /api/v1/users/:owner/auto-swap.
func (h *TokenVaultHandler) ConfigureAutoSwap(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	var req dto.AutoSwapRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	cfg, err := h.vaults.ConfigureAutoSwap(c.Request.Context(), ports.AutoSwapRequest{
		Owner:      owner,
		Caller:     signer,
		Enabled:    req.Enabled,
		TargetMint: solana.MustPublicKeyFromBase58(req.TargetMint),
		MinAmount:  req.MinAmount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// Get handles GET /api/v1/users/:owner/token-vaults/:mint.
func (h *TokenVaultHandler) Get(c *gin.Context) {
	owner, err := keyParam(c, "owner")
	if err != nil {
		response.Error(c, err)
		return
	}
	mint, err := keyParam(c, "mint")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.reporting.GetTokenVault(c.Request.Context(), owner, mint)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}
