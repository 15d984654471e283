package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"PasteBox/config"
	"PasteBox/model"

	mysqlDriver "github.com/go-sql-driver/mysql"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AutoMigrateAll migrates all database models.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.FileRecord{},
		&model.NotifyTask{},
	); err != nil {
		return err
	}
	if db.Dialector.Name() == "mysql" {
		return binaryShortCodes(db)
	}
	return nil
}

// binaryShortCodes gives short_code a case-sensitive collation on MySQL. The
// default *_ci collations would make "abcDEF" and "ABCdef" the same code in
// both the unique index and lookups.
func binaryShortCodes(db *gorm.DB) error {
	table := model.FileRecord{}.TableName()
	var collation string
	err := db.Raw(`SELECT COALESCE(COLLATION_NAME, '') FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND COLUMN_NAME = 'short_code'`, table).
		Scan(&collation).Error
	if err != nil {
		return fmt.Errorf("read short_code collation: %w", err)
	}
	if collation == mysqlBinaryCollation {
		return nil
	}
	stmt := "ALTER TABLE " + quoteMySQLIdentifier(table) +
		" MODIFY short_code VARCHAR(32) CHARACTER SET utf8mb4 COLLATE " + mysqlBinaryCollation + " NOT NULL"
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("set short_code collation: %w", err)
	}
	slog.Info("short_code collation set", "table", table, "collation", mysqlBinaryCollation)
	return nil
}

const mysqlBinaryCollation = "utf8mb4_bin"

// gormConfig keeps driver errors untranslated so unique violations still
// name the index they hit.
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}
}

func mysqlDSN(cfg config.Config, dbName string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBHost,
		cfg.DBPort,
		dbName,
	)
}

func postgresDSN(cfg config.Config, dbName string) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPass,
		dbName,
	)
}

func dialector(cfg config.Config, dbName string) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.DBDriver) {
	case "", "mysql":
		return gormMysql.Open(mysqlDSN(cfg, dbName)), nil
	case "postgres", "postgresql":
		return postgres.Open(postgresDSN(cfg, dbName)), nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DBDriver)
	}
}

// OpenDB connects to the configured database and migrates the schema.
func OpenDB(cfg config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg, cfg.DBName)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(d, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := AutoMigrateAll(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("init db success", "driver", cfg.DBDriver, "db", cfg.DBName)
	return db, nil
}

// OpenTestMysql connects to the test MySQL database, creating it if missing.
func OpenTestMysql(cfg config.Config) (*gorm.DB, error) {
	dsn := mysqlDSN(cfg, cfg.DBNameTest)
	db, err := gorm.Open(gormMysql.Open(dsn), gormConfig())
	if err != nil && isUnknownDatabaseError(err) {
		if createErr := ensureMySQLDatabase(cfg, cfg.DBNameTest); createErr != nil {
			return nil, fmt.Errorf("create test database: %w", createErr)
		}
		db, err = gorm.Open(gormMysql.Open(dsn), gormConfig())
	}
	if err != nil {
		return nil, fmt.Errorf("open test db: %w", err)
	}
	if err := AutoMigrateAll(db); err != nil {
		return nil, err
	}
	return db, nil
}

func isUnknownDatabaseError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1049
	}
	return strings.Contains(strings.ToLower(err.Error()), "unknown database")
}

// isDuplicateKey reports whether err is a unique constraint violation on any
// supported driver. Use uniqueViolation to learn which constraint failed.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func ensureMySQLDatabase(cfg config.Config, dbName string) error {
	dbName = strings.TrimSpace(dbName)
	if dbName == "" {
		return errors.New("empty database name")
	}

	serverDB, err := sql.Open("mysql", mysqlDSN(cfg, ""))
	if err != nil {
		return err
	}
	defer serverDB.Close()

	if err = serverDB.Ping(); err != nil {
		return err
	}

	_, err = serverDB.Exec(
		"CREATE DATABASE IF NOT EXISTS " + quoteMySQLIdentifier(dbName) + " CHARACTER SET utf8mb4 COLLATE utf8mb4_general_ci",
	)
	return err
}

func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
