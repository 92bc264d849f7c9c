package handler

import (
	"auto-savings-vault/internal/adapter/http/middleware"
	"auto-savings-vault/internal/adapter/metrics"
	"auto-savings-vault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies. Ledger requests are a few hundred bytes.
const maxBodyBytes = 64 << 10

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SavingsSvc     ports.SavingsService
	TreasurySvc    ports.TreasuryService
	AllocationSvc  ports.AllocationService
	TokenVaultSvc  ports.TokenVaultService
	ReportingSvc   ports.ReportingService
	AuthSvc        ports.AuthService
	SigSvc         ports.SignatureService
	NonceStore     ports.NonceStore
	TokenSvc       ports.TokenService
	RateLimiter    ports.RateLimiter // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *metrics.Metrics   // nil = no /metrics endpoint
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// Mutations require a signed request; per-user reads require a session token.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimiter == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimiter, group, rule, deps.Logger)
	}

	signed := middleware.SignatureAuth(deps.SigSvc, deps.NonceStore, deps.Logger)
	session := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	authHandler := NewAuthHandler(deps.AuthSvc)
	treasuryHandler := NewTreasuryHandler(deps.TreasurySvc, deps.ReportingSvc)
	userHandler := NewUserHandler(deps.SavingsSvc, deps.ReportingSvc)
	allocationHandler := NewAllocationHandler(deps.AllocationSvc, deps.ReportingSvc)
	tokenVaultHandler := NewTokenVaultHandler(deps.TokenVaultSvc, deps.ReportingSvc)

	v1 := r.Group("/api/v1")

	// --- Public routes ---
	v1.POST("/auth/login", rl(middleware.GroupAuthLogin), authHandler.Login)
	v1.GET("/stats", rl(middleware.GroupRead), treasuryHandler.GetStats)
	v1.GET("/treasury", rl(middleware.GroupRead), treasuryHandler.GetTreasury)

	// --- Treasury (signed, authority-gated in the service) ---
	treasury := v1.Group("/treasury", signed, rl(middleware.GroupTreasury))
	{
		treasury.POST("", treasuryHandler.Initialize)
		treasury.POST("/withdraw", treasuryHandler.Withdraw)
		treasury.POST("/pause", treasuryHandler.TogglePause)
		treasury.PUT("/tvl-cap", treasuryHandler.UpdateTVLCap)
	}
	v1.POST("/wallets/:address/credit", signed, rl(middleware.GroupTreasury), treasuryHandler.CreditWallet)
	v1.GET("/balances/:address", session, rl(middleware.GroupRead), treasuryHandler.GetBalance)

	// --- Users ---
	users := v1.Group("/users")
	users.POST("", signed, rl(middleware.GroupConfig), userHandler.InitializeUser)

	reads := users.Group("/:owner", session, rl(middleware.GroupRead))
	{
		reads.GET("", userHandler.GetUser)
		reads.GET("/journal", userHandler.ListJournal)
		reads.GET("/allocations", allocationHandler.List)
		reads.GET("/token-vaults/:mint", tokenVaultHandler.Get)
	}

	config := users.Group("/:owner", signed, rl(middleware.GroupConfig))
	{
		config.PUT("/savings-rate", userHandler.UpdateSavingsRate)
		config.POST("/deactivate", userHandler.Deactivate)
		config.POST("/reactivate", userHandler.Reactivate)
		config.POST("/allocations", allocationHandler.Create)
		config.PUT("/allocations/:index", allocationHandler.Update)
		config.DELETE("/allocations/:index", allocationHandler.Remove)
		config.POST("/token-vaults", tokenVaultHandler.Initialize)
		config.PUT("/auto-swap", tokenVaultHandler.ConfigureAutoSwap)
	}

	movements := users.Group("/:owner", signed, rl(middleware.GroupMovement))
	{
		movements.POST("/deposit", userHandler.Deposit)
		movements.POST("/withdraw", userHandler.Withdraw)
		movements.POST("/transfers", userHandler.ProcessTransfer)
		movements.POST("/allocations/deposit", allocationHandler.Deposit)
		movements.POST("/allocations/:index/withdraw", allocationHandler.Withdraw)
		movements.POST("/token-vaults/:mint/deposit", tokenVaultHandler.Deposit)
		movements.POST("/token-vaults/:mint/withdraw", tokenVaultHandler.Withdraw)
	}

	return r
}
