package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
	"github.com/sarisssa/dappify-contracts/internal/handler"
)

func Setup(engine *escrow.Engine, ledger *asset.Ledger) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "escrow-engine",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		escrowHandler := handler.NewEscrowHandler(engine, ledger)

		projects := v1.Group("/projects")
		{
			projects.POST("", escrowHandler.CreateProject)
			projects.GET("", escrowHandler.ListProjects)
			projects.GET("/:id", escrowHandler.GetProject)
			projects.POST("/:id/allocations", escrowHandler.Allocate)
			projects.POST("/:id/claim", escrowHandler.Claim)
			projects.POST("/:id/refund", escrowHandler.Refund)
			projects.POST("/:id/withdraw", escrowHandler.Withdraw)
			projects.GET("/:id/events", escrowHandler.ListEvents)
		}

		v1.GET("/stats", escrowHandler.GetStats)
		v1.POST("/accounts/:address/deposits", escrowHandler.Deposit)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
