package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sarisssa/dappify-contracts/internal/config"
	"github.com/sarisssa/dappify-contracts/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Init(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate 自动迁移并初始化计数器
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.ProjectModel{},
		&model.AllocationModel{},
		&model.EventModel{},
		&model.AssetBalanceModel{},
		&model.ProjectCounterModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// 计数器单行，项目ID从1开始分配
	counter := model.ProjectCounterModel{Id: 1, NextId: 0}
	if err := db.Where(model.ProjectCounterModel{Id: 1}).FirstOrCreate(&counter).Error; err != nil {
		return fmt.Errorf("failed to seed project counter: %w", err)
	}

	return nil
}
