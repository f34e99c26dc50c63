package database

import (
	"fmt"
	"time"

	"github.com/mroshb/lid_lottery/internal/config"
	"github.com/mroshb/lid_lottery/internal/models"
	"github.com/mroshb/lid_lottery/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func Dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		return postgres.Open(cfg.GetDSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// Writes that need atomicity open their own transactions
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(20)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	logger.Info("Database connected successfully", "driver", cfg.DBDriver)
	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.LidCode{},
		&models.Coupon{},
		&models.PlayAttempt{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// SeedCodes makes sure every configured code has a record and persists the
// normalized state of records that were stored inconsistently.
func SeedCodes(db *gorm.DB, codes []string) error {
	logger.Info("Seeding lottery codes...", "count", len(codes))

	return db.Transaction(func(tx *gorm.DB) error {
		for _, code := range codes {
			var record models.LidCode
			err := tx.Where("code = ?", code).First(&record).Error
			if err == gorm.ErrRecordNotFound {
				record = models.LidCode{
					Code:    code,
					Outcome: models.OutcomePending,
					Status:  models.CodeStatusNew,
				}
				if err := tx.Create(&record).Error; err != nil {
					return fmt.Errorf("seed code %s: %w", code, err)
				}
				continue
			}
			if err != nil {
				return fmt.Errorf("load code %s: %w", code, err)
			}

			normalized := models.Normalize(record)
			if normalized.Outcome != record.Outcome || normalized.Status != record.Status {
				logger.Warn("Repairing inconsistent code record",
					"code", code,
					"status", record.Status,
					"outcome", record.Outcome,
				)
				if err := tx.Model(&record).Updates(map[string]interface{}{
					"status":  normalized.Status,
					"outcome": normalized.Outcome,
				}).Error; err != nil {
					return fmt.Errorf("repair code %s: %w", code, err)
				}
			}
		}
		return nil
	})
}

// PurgeUnlisted deletes every code outside codes together with its coupon and
// its attempts. Attempts that never resolved to a code are kept.
func PurgeUnlisted(db *gorm.DB, codes []string) (int64, error) {
	var purged int64
	err := db.Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.LidCode{}).Select("id").Where("code NOT IN ?", codes)

		if err := tx.Where("lid_code_id IN (?)", stale).Delete(&models.Coupon{}).Error; err != nil {
			return fmt.Errorf("purge coupons: %w", err)
		}
		if err := tx.Where("lid_code_id IN (?)", stale).Delete(&models.PlayAttempt{}).Error; err != nil {
			return fmt.Errorf("purge attempts: %w", err)
		}

		res := tx.Where("code NOT IN ?", codes).Delete(&models.LidCode{})
		if res.Error != nil {
			return fmt.Errorf("purge codes: %w", res.Error)
		}
		purged = res.RowsAffected
		return nil
	})
	return purged, err
}
