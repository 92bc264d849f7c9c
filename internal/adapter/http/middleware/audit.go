package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful write operations after the handler has run.
// Routes are matched by their template so path parameters do not matter.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapRouteToAction(c.Request.Method, c.FullPath())
		if action == "" {
			return
		}

		var actor string
		if signer, ok := SignerFrom(c); ok {
			actor = signer.String()
		}

		resourceID := c.Param("owner")
		if resourceID == "" {
			resourceID = c.Param("address")
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Actor:        actor,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(method, route string) (domain.AuditAction, string) {
	switch method + " " + route {
	case "POST /api/v1/auth/login":
		return domain.AuditActionLogin, "session"
	case "POST /api/v1/treasury":
		return domain.AuditActionInitialize, "treasury"
	case "POST /api/v1/treasury/withdraw",
		"POST /api/v1/treasury/pause",
		"PUT /api/v1/treasury/tvl-cap":
		return domain.AuditActionTreasury, "treasury"
	case "POST /api/v1/users":
		return domain.AuditActionInitialize, "user"
	case "PUT /api/v1/users/:owner/savings-rate",
		"POST /api/v1/users/:owner/deactivate",
		"POST /api/v1/users/:owner/reactivate",
		"PUT /api/v1/users/:owner/auto-swap":
		return domain.AuditActionConfigure, "user"
	case "POST /api/v1/users/:owner/deposit":
		return domain.AuditActionDeposit, "user"
	case "POST /api/v1/users/:owner/withdraw":
		return domain.AuditActionWithdraw, "user"
	case "POST /api/v1/users/:owner/transfers":
		return domain.AuditActionTransfer, "user"
	case "POST /api/v1/users/:owner/allocations",
		"PUT /api/v1/users/:owner/allocations/:index",
		"DELETE /api/v1/users/:owner/allocations/:index":
		return domain.AuditActionAllocation, "allocation"
	case "POST /api/v1/users/:owner/allocations/deposit":
		return domain.AuditActionDeposit, "allocation"
	case "POST /api/v1/users/:owner/allocations/:index/withdraw":
		return domain.AuditActionWithdraw, "allocation"
	case "POST /api/v1/users/:owner/token-vaults":
		return domain.AuditActionInitialize, "token_vault"
	case "POST /api/v1/users/:owner/token-vaults/:mint/deposit":
		return domain.AuditActionDeposit, "token_vault"
	case "POST /api/v1/users/:owner/token-vaults/:mint/withdraw":
		return domain.AuditActionWithdraw, "token_vault"
	case "POST /api/v1/wallets/:address/credit":
		return domain.AuditActionWalletCredit, "wallet"
	}
	return "", ""
}
