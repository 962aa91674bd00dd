package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/config"
	"github.com/aristath/stockcart/internal/database"
)

// InitializeDatabases opens the stockcart database and applies the schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "stockcart",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize stockcart database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate stockcart database: %w", err)
	}

	log.Info().Str("path", db.Path()).Msg("Database initialized")
	return &Container{DB: db}, nil
}
