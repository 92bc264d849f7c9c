package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"auto-savings-vault/internal/core/domain"
	"auto-savings-vault/internal/core/ports/mocks"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditLog_DepositSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)
	signer := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	var got *domain.AuditLog
	mockAudit.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, entry *domain.AuditLog) {
		got = entry
	})

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/users/:owner/deposit", func(c *gin.Context) {
		c.Set(CtxSigner, signer)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/"+owner.String()+"/deposit", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	if assert.NotNil(t, got) {
		assert.Equal(t, domain.AuditActionDeposit, got.Action)
		assert.Equal(t, "user", got.ResourceType)
		assert.Equal(t, owner.String(), got.ResourceID)
		assert.Equal(t, signer.String(), got.Actor)
		assert.Contains(t, got.Details, `"status":200`)
	}
}

func TestAuditLog_SkipsGET(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.GET("/api/v1/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"total_users": 1})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditLog_SkipsFailedRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAudit := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(AuditLog(mockAudit))
	r.POST("/api/v1/users/:owner/withdraw", func(c *gin.Context) {
		c.JSON(http.StatusPaymentRequired, gin.H{"error_code": "LDG_003"})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/users/x/withdraw", nil))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestMapRouteToAction(t *testing.T) {
	tests := []struct {
		method   string
		route    string
		action   domain.AuditAction
		resource string
	}{
		{"POST", "/api/v1/auth/login", domain.AuditActionLogin, "session"},
		{"POST", "/api/v1/treasury", domain.AuditActionInitialize, "treasury"},
		{"POST", "/api/v1/treasury/withdraw", domain.AuditActionTreasury, "treasury"},
		{"PUT", "/api/v1/treasury/tvl-cap", domain.AuditActionTreasury, "treasury"},
		{"POST", "/api/v1/users", domain.AuditActionInitialize, "user"},
		{"PUT", "/api/v1/users/:owner/savings-rate", domain.AuditActionConfigure, "user"},
		{"POST", "/api/v1/users/:owner/transfers", domain.AuditActionTransfer, "user"},
		{"DELETE", "/api/v1/users/:owner/allocations/:index", domain.AuditActionAllocation, "allocation"},
		{"POST", "/api/v1/users/:owner/allocations/:index/withdraw", domain.AuditActionWithdraw, "allocation"},
		{"POST", "/api/v1/users/:owner/token-vaults/:mint/deposit", domain.AuditActionDeposit, "token_vault"},
		{"PUT", "/api/v1/users/:owner/auto-swap", domain.AuditActionConfigure, "user"},
		{"POST", "/api/v1/wallets/:address/credit", domain.AuditActionWalletCredit, "wallet"},
		{"GET", "/api/v1/users/:owner", "", ""},
		{"POST", "/unknown", "", ""},
	}

	for _, tc := range tests {
		action, resource := mapRouteToAction(tc.method, tc.route)
		assert.Equal(t, tc.action, action, "%s %s", tc.method, tc.route)
		assert.Equal(t, tc.resource, resource, "%s %s", tc.method, tc.route)
	}
}
