package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// 与同库其他服务的迁移记录隔离
const migrationsTable = "fleet_schema_migrations"

// ErrDirtyMigration 上次迁移中途失败，需人工修复后再启动
var ErrDirtyMigration = errors.New("数据库迁移处于 dirty 状态")

// RunMigrations 应用所有未执行的迁移
// 迁移处于 dirty 状态时拒绝继续，避免在半成品表结构上运行班次逻辑
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("读取迁移版本失败: %w", err)
	}
	if dirty {
		return fmt.Errorf("%w: version=%d", ErrDirtyMigration, from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	to, _, _ := m.Version()
	logger.Info("数据库迁移完成",
		zap.Uint("from_version", from),
		zap.Uint("to_version", to),
		zap.String("table", migrationsTable),
	)
	return nil
}
