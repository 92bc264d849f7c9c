package handler

import (
	"auto-savings-vault/internal/adapter/http/dto"
	"auto-savings-vault/internal/core/ports"
	"auto-savings-vault/pkg/apperror"
	"auto-savings-vault/pkg/response"

	"github.com/gin-gonic/gin"
)

// AllocationHandler serves the allocation tracker.
type AllocationHandler struct {
	allocations ports.AllocationService
	reporting   ports.ReportingService
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(allocations ports.AllocationService, reporting ports.ReportingService) *AllocationHandler {
	return &AllocationHandler{allocations: allocations, reporting: reporting}
}

// Create handles POST /api/v1/users/:owner/allocations.
func (h *AllocationHandler) Create(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	var req dto.CreateAllocationRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}
	pct, err := toUint8(*req.Percentage, apperror.ErrInvalidAllocationPercentage())
	if err != nil {
		response.Error(c, err)
		return
	}

	ledger, err := h.allocations.Create(c.Request.Context(), ports.CreateAllocationRequest{
		Owner:      owner,
		Caller:     signer,
		Name:       req.Name,
		Percentage: pct,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ledger)
}

// Update handles PUT /api/v1/users/:owner/allocations/:index.
func (h *AllocationHandler) Update(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	index, err := indexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateAllocationRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	in := ports.UpdateAllocationRequest{Owner: owner, Caller: signer, Index: index, Name: req.Name}
	if req.Percentage != nil {
		pct, err := toUint8(*req.Percentage, apperror.ErrInvalidAllocationPercentage())
		if err != nil {
			response.Error(c, err)
			return
		}
		in.Percentage = &pct
	}

	ledger, err := h.allocations.Update(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}

// Remove handles DELETE /api/v1/users/:owner/allocations/:index.
func (h *AllocationHandler) Remove(c *gin.Context) {
	owner, signer, ok := ownerAndCaller(c)
	if !ok {
		return
	}
	index, err := indexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	ledger, err := h.allocations.Remove(c.Request.Context(), owner, signer, index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}

// Deposit handles POST /api/v1/users/:owner/allocations/deposit.
func (h *AllocationHandler) Deposit(c *gin.Context) {
	req, ok := amountRequest(c)
	if !ok {
		return
	}
	res, err := h.allocations.Deposit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, ""))
}

// Withdraw handles POST /api/v1/users/:owner/allocations/:index/withdraw.
func (h *AllocationHandler) Withdraw(c *gin.Context) {
	index, err := indexParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req, ok := amountRequest(c)
	if !ok {
		return
	}
	res, err := h.allocations.Withdraw(c.Request.Context(), ports.AllocationWithdrawRequest{
		AmountRequest: req,
		Index:         index,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewMovementResponse(res, ""))
}

// List handles GET /api/v1/users/:owner/allocations.
func (h *AllocationHandler) List(c *gin.Context) {
	owner, err := keyParam(c, "owner")
	if err != nil {
		response.Error(c, err)
		return
	}
	ledger, err := h.reporting.GetAllocations(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}
