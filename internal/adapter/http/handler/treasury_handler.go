package handler

import (
	"auto-savings-vault/internal/adapter/http/dto"
	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
	"auto-savings-vault/pkg/response"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
)

// TreasuryHandler serves the authority-gated treasury and the protocol-wide views.
type TreasuryHandler struct {
	treasury  ports.TreasuryService
	reporting ports.ReportingService
}

// NewTreasuryHandler creates a new TreasuryHandler.
func NewTreasuryHandler(treasury ports.TreasuryService, reporting ports.ReportingService) *TreasuryHandler {
	return &TreasuryHandler{treasury: treasury, reporting: reporting}
}

// Initialize handles POST /api/v1/treasury. The signer becomes the authority.
func (h *TreasuryHandler) Initialize(c *gin.Context) {
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	t, err := h.treasury.Initialize(c.Request.Context(), signer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Withdraw handles POST /api/v1/treasury/withdraw.
func (h *TreasuryHandler) Withdraw(c *gin.Context) {
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.AmountRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	res, err := h.treasury.Withdraw(c.Request.Context(), ports.TreasuryWithdrawRequest{
		Caller:      signer,
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, ""))
}

// TogglePause handles POST /api/v1/treasury/pause.
func (h *TreasuryHandler) TogglePause(c *gin.Context) {
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	t, err := h.treasury.TogglePause(c.Request.Context(), signer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// UpdateTVLCap handles PUT /api/v1/treasury/tvl-cap.
func (h *TreasuryHandler) UpdateTVLCap(c *gin.Context) {
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TVLCapRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	t, err := h.treasury.UpdateTVLCap(c.Request.Context(), signer, *req.TVLCap)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// CreditWallet handles POST /api/v1/wallets/:address/credit.
func (h *TreasuryHandler) CreditWallet(c *gin.Context) {
	address, err := keyParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}
	signer, err := caller(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.WalletCreditRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	var mint solana.PublicKey
	if req.Mint != "" {
		mint = solana.MustPublicKeyFromBase58(req.Mint)
	}

	res, err := h.treasury.CreditWallet(c.Request.Context(), ports.WalletCreditRequest{
		Caller:  signer,
		Address: address,
		Mint:    mint,
		Amount:  req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, req.Mint))
}

// GetTreasury handles GET /api/v1/treasury.
func (h *TreasuryHandler) GetTreasury(c *gin.Context) {
	t, err := h.reporting.GetTreasury(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// GetStats handles GET /api/v1/stats.
func (h *TreasuryHandler) GetStats(c *gin.Context) {
	stats, err := h.reporting.GetProgramStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewStatsResponse(stats))
}

// GetBalance handles GET /api/v1/balances/:address?mint=.
func (h *TreasuryHandler) GetBalance(c *gin.Context) {
	address, err := keyParam(c, "address")
	if err != nil {
		response.Error(c, err)
		return
	}
	var mint solana.PublicKey
	if m := c.Query("mint"); m != "" {
		mint, err = solana.PublicKeyFromBase58(m)
		if err != nil {
			response.Error(c, apperror.Validation("invalid mint: must be a base58 public key"))
			return
		}
	}

	bal, err := h.reporting.GetBalance(c.Request.Context(), address, mint)
	if err != nil {
		response.Error(c, err)
		return
	}
	if mint.IsZero() {
		mint = domain.NativeMint
	}
	response.OK(c, dto.NewBalanceResponse(address.String(), mint.String(), bal))
}
