package database

import (
	"fmt"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options describes the postgres connection. Zero values fall back to the
// local development defaults.
type Options struct {
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	Debug    bool
}

var (
	DB   *gorm.DB
	once sync.Once
	err  error
)

func Connect(opts Options) (*gorm.DB, error) {
	once.Do(func() {
		dsn := fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			valueOrDefault(opts.Host, "localhost"),
			valueOrDefault(opts.User, "postgres"),
			opts.Password,
			valueOrDefault(opts.Name, "bazaar"),
			valueOrDefault(opts.Port, "5432"),
		)

		logLevel := gormlogger.Warn
		if opts.Debug {
			logLevel = gormlogger.Info
		}

		var db *gorm.DB
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         gormlogger.Default.LogMode(logLevel),
		})
		if err != nil {
			err = fmt.Errorf("failed to connect database: %w", err)
			return
		}

		DB = db
	})

	return DB, err
}

func valueOrDefault(val, fallback string) string {
	if val != "" {
		return val
	}

	return fallback
}
