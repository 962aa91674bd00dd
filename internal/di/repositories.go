package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/modules/cart"
	"github.com/aristath/stockcart/internal/modules/rules"
)

// InitializeRepositories creates the data access layer
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database cannot be nil")
	}

	container.RuleRepo = rules.NewRepository(container.DB.Conn(), log)
	container.CartRepo = cart.NewRepository(container.DB.Conn(), log)

	log.Info().Msg("Repositories initialized")
	return nil
}
