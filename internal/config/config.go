package config

import (
	"github.com/sarisssa/dappify-contracts/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite文件路径
}

// EngineConfig 托管引擎配置
type EngineConfig struct {
	MinUnit        int64  `mapstructure:"min_unit"`        // 最小可交易份额
	CustodyAddress string `mapstructure:"custody_address"` // 托管账户地址
	WorkerPoolSize int    `mapstructure:"worker_pool_size"`
}

// ChainConfig 链上托管后端配置（可选）
type ChainConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ChainId       int64  `mapstructure:"chain_id"`       // 链ID
	RpcUrl        string `mapstructure:"rpc_url"`        // RPC节点URL
	PrivateKey    string `mapstructure:"private_key"`    // 托管账户私钥
	TokenAddress  string `mapstructure:"token_address"`  // 支付代币合约地址
	Confirmations int    `mapstructure:"confirmations"`  // 确认区块数
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/escrow")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "escrow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.path", "escrow.db")
	viper.SetDefault("engine.min_unit", 1)
	viper.SetDefault("engine.custody_address", "custody")
	viper.SetDefault("engine.worker_pool_size", 8)
	viper.SetDefault("chain.enabled", false)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
