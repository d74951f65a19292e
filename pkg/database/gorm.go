package database

import (
	"errors"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes the connection. The zero value is production-quiet with the
// default pool.
type Options struct {
	// Verbose logs every statement instead of only slow ones and errors.
	Verbose         bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 10
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 50
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = time.Hour
	}
	return o
}

func newLogger(verbose bool) logger.Interface {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  verbose,
		},
	)
}

// Open connects to postgres and sizes the pool.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database: empty connection string")
	}
	opts = opts.withDefaults()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger(opts.Verbose),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	return db, nil
}
