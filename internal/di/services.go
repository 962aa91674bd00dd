package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockcart/internal/config"
	"github.com/aristath/stockcart/internal/modules/automation"
	"github.com/aristath/stockcart/internal/modules/cart"
	carthandlers "github.com/aristath/stockcart/internal/modules/cart/handlers"
	"github.com/aristath/stockcart/internal/modules/market"
	"github.com/aristath/stockcart/internal/modules/rules"
	rulehandlers "github.com/aristath/stockcart/internal/modules/rules/handlers"
	"github.com/aristath/stockcart/internal/notify"
	"github.com/aristath/stockcart/internal/reliability"
	"github.com/aristath/stockcart/internal/scheduler"
	"github.com/aristath/stockcart/internal/utils"
)

// InitializeServices creates the business logic layer and HTTP handlers
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, version string, log zerolog.Logger) error {
	if container == nil || container.RuleRepo == nil || container.CartRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	container.Locks = utils.NewKeyedMutex()
	container.Simulator = market.NewSimulator(log)
	container.Hub = notify.NewHub(log)

	container.RulesService = rules.NewService(container.RuleRepo, log)
	container.CartService = cart.NewService(
		container.DB.Conn(),
		container.CartRepo,
		container.RuleRepo,
		container.Simulator,
		container.Locks,
		log,
	).WithQuoteTimeout(cfg.QuoteTimeout)

	container.Engine = automation.NewEngine(
		container.RuleRepo,
		container.CartRepo,
		container.Simulator,
		container.Hub,
		container.Locks,
		automation.Config{
			QuoteTimeout: cfg.QuoteTimeout,
			SlowTick:     cfg.AutomationInterval,
		},
		log,
	)

	container.CartHandler = carthandlers.NewHandler(container.CartService, log)
	container.RulesHandler = rulehandlers.NewHandler(container.RulesService, log)

	container.Scheduler = scheduler.New(log)

	if cfg.Backup != nil && cfg.Backup.Enabled {
		client, err := reliability.NewR2Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewR2BackupService(client, container.DB, cfg.DataDir, version, log)
		log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Off-site backups enabled")
	}

	log.Info().Msg("Services initialized")
	return nil
}
