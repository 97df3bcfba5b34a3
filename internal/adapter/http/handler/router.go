package handler

import (
	"tipvault/internal/adapter/http/middleware"
	redisStore "tipvault/internal/adapter/storage/redis"
	"tipvault/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DepositSvc     ports.DepositService
	TransferSvc    ports.TransferService
	WithdrawalSvc  ports.WithdrawalService
	APIKey         string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// All ledger routes sit behind the shared API key; the only caller is
	// the chat backend.
	v1 := r.Group("/api/v1", middleware.APIKeyAuth(deps.APIKey, deps.Logger))

	accountHandler := NewAccountHandler(deps.DepositSvc)
	accounts := v1.Group("/accounts")
	{
		accounts.POST("/:id/deposit", rl("deposits"), accountHandler.OpenDeposit)
		accounts.POST("/:id/deposit/check", rl("deposit_checks"), accountHandler.CheckDeposit)
		accounts.GET("/:id/balance", rl("reads"), accountHandler.GetBalance)
		accounts.GET("/:id/movements", rl("reads"), accountHandler.ListMovements)
	}

	transferHandler := NewTransferHandler(deps.TransferSvc)
	v1.POST("/tips", rl("tips"), transferHandler.SendTip)

	withdrawalHandler := NewWithdrawalHandler(deps.WithdrawalSvc)
	v1.POST("/withdrawals", rl("withdrawals"), withdrawalHandler.Withdraw)

	return r
}
