package main

import (
	"github.com/gin-gonic/gin"
	"github.com/sarisssa/dappify-contracts/internal/asset"
	"github.com/sarisssa/dappify-contracts/internal/chain"
	"github.com/sarisssa/dappify-contracts/internal/config"
	"github.com/sarisssa/dappify-contracts/internal/database"
	"github.com/sarisssa/dappify-contracts/internal/escrow"
	"github.com/sarisssa/dappify-contracts/internal/logger"
	"github.com/sarisssa/dappify-contracts/internal/router"
	"github.com/sarisssa/dappify-contracts/internal/scheduler"
)

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	initLogger(cfg.Log)
	defer logger.Sync()

	// 初始化数据库
	db, err := database.Init(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database: %v", err)
	}

	// 初始化协作方：默认内置托管台账，可切换链上ERC-20后端
	var (
		issuer   escrow.AssetIssuer
		payments escrow.PaymentChannel
		ledger   *asset.Ledger
		custody  = cfg.Engine.CustodyAddress
	)
	if cfg.Chain.Enabled {
		chainClient, err := chain.Init(cfg.Chain)
		if err != nil {
			logger.Fatal("Failed to initialize chain client: %v", err)
		}
		issuer = chainClient
		payments = chainClient
		custody = chainClient.CustodyAddress()
	} else {
		// 台账独立建库，sqlite下避免与引擎事务争用单写锁
		ledgerCfg := cfg.Database
		if ledgerCfg.Driver != "postgres" {
			ledgerCfg.Path = ledgerCfg.Path + ".assets"
		}
		ledgerDB, err := database.Init(ledgerCfg)
		if err != nil {
			logger.Fatal("Failed to initialize asset ledger database: %v", err)
		}
		ledger = asset.NewLedger(ledgerDB, custody)
		issuer = ledger
		payments = ledger
	}

	// 初始化事件分发器
	notifier, err := escrow.NewNotifier(cfg.Engine.WorkerPoolSize)
	if err != nil {
		logger.Fatal("Failed to initialize notifier: %v", err)
	}
	defer notifier.Close()

	// 初始化托管引擎
	engine := escrow.NewEngine(db, issuer, payments, notifier, escrow.Options{
		MinUnit:        cfg.Engine.MinUnit,
		CustodyAddress: custody,
	})

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化路由
	r := router.Setup(engine, ledger)

	// 启动定时任务
	manager := scheduler.Start(db, notifier, cfg)
	defer manager.Stop()

	// 启动服务器
	logger.Info("Server starting on port %s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}

// initLogger 按配置初始化默认日志器
func initLogger(cfg config.LogConfig) {
	level := logger.ParseLogLevel(cfg.Level)

	if cfg.Output == "file" {
		l, err := logger.NewWithFileRotation(level, cfg.File)
		if err != nil {
			logger.Fatal("Failed to initialize file logger: %v", err)
		}
		logger.SetDefaultLogger(l)
		return
	}

	l, err := logger.New(level)
	if err != nil {
		logger.Fatal("Failed to initialize logger: %v", err)
	}
	logger.SetDefaultLogger(l)
}
