package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
	GetDB() *gorm.DB
}

type service struct {
	db     *gorm.DB
	name   string
	logger *zap.Logger
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// TablePrefix turns a deployment namespace into the prefix shared by all of
// its tables, e.g. "default-app-id" -> "default_app_id_".
func TablePrefix(namespace string) string {
	p := strings.Trim(nonIdent.ReplaceAllString(strings.ToLower(namespace), "_"), "_")
	if p == "" {
		return ""
	}
	return p + "_"
}

// New opens the configured database, migrates the schema under the namespace
// prefix and configures the connection pool.
func New(cfg config.DatabaseConfig, namespace string, log *zap.Logger) (Service, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		dialector = postgres.Open(cfg.PostgresDSN())
	}

	svc, err := open(dialector, namespace, log, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if cfg.Driver != "sqlite" {
		sqlDB, err := svc.db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	svc.name = cfg.DBName
	return svc, nil
}

// Open connects through an already built dialector and migrates the schema.
// Tests use it with in-memory sqlite.
func Open(dialector gorm.Dialector, namespace string, log *zap.Logger, logLevel string) (Service, error) {
	svc, err := open(dialector, namespace, log, logLevel)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func open(dialector gorm.Dialector, namespace string, log *zap.Logger, logLevel string) (*service, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log, logLevel),
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{TablePrefix: TablePrefix(namespace)},
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connected", zap.String("namespace", namespace))

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		// every sqlite connection would otherwise get its own in-memory database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed")

	return &service{db: db, logger: log}, nil
}

// Migrate creates or updates every table of the forum
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Question{},
		&models.Answer{},
		&models.Vote{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *service) GetDB() *gorm.DB {
	return s.db
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (s *service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	s.logger.Info("Disconnected from database", zap.String("database", s.name))
	return sqlDB.Close()
}
