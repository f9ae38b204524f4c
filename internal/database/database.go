package database

import (
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/forum-core/backend/internal/config"
	"github.com/emilythestrangee/forum-core/backend/internal/models"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Open connects GORM to Postgres through the configured database/sql driver
// ("pgx" or "postgres" for lib/pq) and configures the connection pool.
func Open(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector := postgres.New(postgres.Config{
		DriverName: cfg.Driver,
		DSN:        cfg.DSN(),
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewLogger(log),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// cascades are applied by the application, references are by identifier only
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = sqlDB.Ping(); err == nil {
			break
		}
		log.Warn("database connection failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", connectBackoff),
			zap.Error(err),
		)
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.String("driver", cfg.Driver),
	)
	return db, nil
}

// Migrate creates or updates the forum tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Vote{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// NewLogger routes GORM's logger through zap.
func NewLogger(log *zap.Logger) logger.Interface {
	return logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
