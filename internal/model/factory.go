package model

import (
	"chathub/internal/config"
	"chathub/internal/entity"
	"chathub/internal/model/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"

	defaultSQLitePath = "datas/chathub.db"
)

var _ Repository = (*sql.GormRepository)(nil)

// InitRepository 按 DBType 打开数据库并完成迁移
func InitRepository(cfg *config.Config) (Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	dialector, err := dialectorFor(*cfg)
	if err != nil {
		return nil, err
	}
	repo, err := OpenRepository(dialector)
	if err != nil {
		return nil, fmt.Errorf("open %s repository: %w", dialector.Name(), err)
	}
	logrus.WithField("db_type", dialector.Name()).Info("repository ready")
	return repo, nil
}

// dialectorFor 选择驱动；DSN_URL 优先于分散的 DB* 字段
func dialectorFor(cfg config.Config) (gorm.Dialector, error) {
	dsn := strings.TrimSpace(cfg.DSNURL)
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case DBTypeMySQL:
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.DBUser, cfg.DBPassword, cfg.DBAddr, cfg.DBPort, cfg.DBName)
		}
		return mysql.Open(dsn), nil
	case DBTypePostgres:
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
				cfg.DBAddr, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		}
		return postgres.Open(dsn), nil
	case DBTypeSQLite, "":
		filePath := strings.TrimSpace(cfg.DBPath)
		if filePath == "" {
			filePath = defaultSQLitePath
		}
		// sqlite 只会创建文件，不会创建目录
		if dir := filepath.Dir(filePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(filePath), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.DBType)
	}
}

// OpenRepository connects through dialector, migrates the schema and wraps the handle.
func OpenRepository(dialector gorm.Dialector) (*sql.GormRepository, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		// GORM 日志走 logrus，只记录慢查询和错误
		Logger: logger.New(logrus.StandardLogger(), logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError:                           true,
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
		DisableForeignKeyConstraintWhenMigrating: true,
		NamingStrategy:                           schema.NamingStrategy{SingularTable: true},
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&entity.User{}, &entity.Conversation{}, &entity.Message{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return sql.NewGormRepository(db), nil
}
