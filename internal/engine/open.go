// Package engine opens the engine handle a provisioning run works through.
package engine

import (
	"context"

	"github.com/vvka-141/hiveseed/internal/db"
	"github.com/vvka-141/hiveseed/internal/engine/livy"
	"github.com/vvka-141/hiveseed/internal/engine/postgres"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// Open validates cfg and connects to the selected engine.
func Open(ctx context.Context, cfg hiveseed.EngineConfig, logger hiveseed.Logger) (hiveseed.Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case hiveseed.EnginePostgres:
		connector, err := db.NewConnector(cfg.Connection, logger)
		if err != nil {
			return nil, err
		}
		logger.Verbose("Using %s authentication", cfg.Connection.AuthMethod)
		return postgres.Open(ctx, connector, logger)
	default:
		return livy.Open(ctx, livy.Options{Config: cfg.Livy, AppName: cfg.AppName}, logger)
	}
}
