package postgres

import (
	"context"

	_ "github.com/jackc/pgx/v4/stdlib" // PostgreSQL driver
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/config"
)

// NewPostgresDB opens the pooled connection to PostgreSQL.
func NewPostgresDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("endpoint", RedactedEndpoint(cfg.DatabaseURL)))

	return db, nil
}

// CloseDB closes the database connection.
func CloseDB(db *sqlx.DB, logger *zap.Logger) {
	if err := db.Close(); err != nil {
		logger.Error("Error closing database connection", zap.Error(err))
	} else {
		logger.Info("Database connection closed")
	}
}

// RedactedEndpoint strips credentials from a connection URL, keeping
// only the part after the last '@'. Safe for logs and health output.
func RedactedEndpoint(databaseURL string) string {
	for i := len(databaseURL) - 1; i >= 0; i-- {
		if databaseURL[i] == '@' {
			return databaseURL[i+1:]
		}
	}
	return databaseURL
}
