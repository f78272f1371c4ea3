package cli

import (
	"context"
	"errors"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/config"
	"tracker/internal/core"
	"tracker/internal/log"
	"tracker/internal/services"
)

// App holds what a command needs after start-up.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Backend   *backend.BackendResult
	Tracker   *services.Tracker
	publisher *amqp.Client
}

// OpenApp builds the primary backend and the tracker service. With
// withPublisher set and AMQP configured, appends are announced on the
// broker; a broker that cannot be reached is logged and skipped.
func OpenApp(ctx context.Context, cfg *config.Config, logger *log.Logger, withPublisher bool) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger, Backend: res}
	opts := services.Options{
		Tables:     tableNames(cfg),
		HabitRules: habitRules(cfg),
		Strict:     cfg.Strict(),
		Logger:     logger,
	}
	if withPublisher && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without append events",
				log.FieldError, err)
		} else {
			app.publisher = client
			opts.Publisher = client
			logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}
	app.Tracker = services.NewTracker(res.Store, opts)
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.Backend.Close())
	return errors.Join(errs...)
}

func tableNames(cfg *config.Config) services.TableNames {
	return services.TableNames{
		Habits:   cfg.HabitsTable,
		Expenses: cfg.ExpensesTable,
		Gym:      cfg.GymTable,
		Config:   cfg.ConfigTable,
	}
}

func habitRules(cfg *config.Config) core.HabitRules {
	rules := core.DefaultHabitRules()
	rules.TargetCount = cfg.HabitTargetCount
	return rules
}
