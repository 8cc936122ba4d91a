package handler

import (
	"custodial-wallet-backend/internal/adapter/http/middleware"
	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	KeySvc         ports.ApiKeyService
	SettlementSvc  ports.SettlementService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	v1.POST("/auth/token", authHandler.Token)

	webhookHandler := NewWebhookHandler(deps.SettlementSvc)
	v1.POST("/webhooks/gateway", webhookHandler.Receive)

	// Deposit status is a public read keyed by the opaque gateway
	// reference, so callers can poll after a gateway timeout.
	walletHandler := NewWalletHandler(deps.WalletSvc)
	v1.GET("/wallet/deposit/:reference", walletHandler.DepositStatus)

	// --- Authenticated routes (session token or API key) ---
	auth := middleware.Auth(deps.AuthSvc, deps.Logger)

	wallet := v1.Group("/wallet", auth)
	{
		wallet.POST("/deposit", middleware.RequireScopes(domain.ScopeDeposit), walletHandler.Deposit)
		wallet.POST("/transfer", middleware.RequireScopes(domain.ScopeTransfer), walletHandler.Transfer)
		wallet.GET("/balance", middleware.RequireScopes(domain.ScopeRead), walletHandler.Balance)
		wallet.GET("/transactions", middleware.RequireScopes(domain.ScopeRead), walletHandler.History)
		wallet.GET("/lookup", middleware.RequireScopes(domain.ScopeTransfer, domain.ScopeRead), walletHandler.LookupRecipient)
	}

	// --- Key management (session token only; keys cannot manage keys) ---
	keyHandler := NewKeyHandler(deps.KeySvc)
	keys := v1.Group("/keys", auth, middleware.RequireTokenOrigin())
	{
		keys.POST("", keyHandler.Create)
		keys.GET("", keyHandler.List)
		keys.GET("/:id", keyHandler.Get)
		keys.DELETE("/:id", keyHandler.Revoke)
		keys.POST("/:id/rollover", keyHandler.Rollover)
	}

	return r
}
