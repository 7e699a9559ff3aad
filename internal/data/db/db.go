package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/openshelf/bibliograph-backend/internal/platform/envutil"
	"github.com/openshelf/bibliograph-backend/internal/platform/logger"
)

// Service owns the GORM handle for the catalog store. Postgres is the
// production driver; sqlite backs local development and demos.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewFromEnv picks the driver from DB_DRIVER (postgres by default).
func NewFromEnv(logg *logger.Logger) (*Service, error) {
	driver := strings.ToLower(envutil.String("DB_DRIVER", "postgres"))
	switch driver {
	case "sqlite":
		return NewSQLiteService(logg)
	case "postgres":
		return NewPostgresService(logg)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}
}

func NewPostgresService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "bibliograph")

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user,
		password,
		host,
		port,
		name,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &Service{db: db, log: serviceLog}, nil
}

func NewSQLiteService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := envutil.String("SQLITE_PATH", "bibliograph.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}

	return &Service{db: db, log: serviceLog}, nil
}

func newGormLogger() gormLogger.Interface {
	return gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

func (s *Service) DB() *gorm.DB { return s.db }
