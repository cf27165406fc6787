package database

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leonard05717/appointment/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 执行数据库迁移
// postgres 走 SQL 迁移（含变更通知触发器）；sqlite 使用 AutoMigrate 并写入默认时间段
func RunMigrations(db *gorm.DB, driver string, logger *zap.Logger, models ...any) error {
	if driver == config.DriverSQLite {
		if err := db.AutoMigrate(models...); err != nil {
			return fmt.Errorf("AutoMigrate 失败: %w", err)
		}
		if err := seedSQLite(db); err != nil {
			return err
		}
		logger.Info("数据库迁移完成", zap.String("driver", driver))
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	drv, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", drv)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		logger.Info("数据库迁移完成", zap.Uint("version", version))
	}

	return nil
}

// SetChangeFeedChannel 设置触发器 notify_table_change 使用的频道（仅 postgres）
func SetChangeFeedChannel(db *gorm.DB, channel string) error {
	res := db.Exec("UPDATE change_feed_settings SET channel = ? WHERE id = 1", channel)
	if res.Error != nil {
		return fmt.Errorf("设置变更通知频道失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("设置变更通知频道失败: change_feed_settings 缺少配置行")
	}
	return nil
}

// DefaultTimeLabels 默认预约时间段
var DefaultTimeLabels = []string{"8 AM - 10 AM", "10 AM - 12 PM", "1 PM - 3 PM", "3 PM - 5 PM"}

// seedSQLite 与 000001 迁移中的种子数据一致
func seedSQLite(db *gorm.DB) error {
	var count int64
	if err := db.Table("appointment_times").Count(&count).Error; err != nil {
		return fmt.Errorf("读取时间段失败: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, label := range DefaultTimeLabels {
		if err := db.Exec("INSERT INTO appointment_times (time, max) VALUES (?, ?)", label, 10).Error; err != nil {
			return fmt.Errorf("写入默认时间段失败: %w", err)
		}
	}
	return nil
}
