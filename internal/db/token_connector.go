package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// TokenBasedConnector connects with a token from a TokenProvider as the
// password (AWS IAM, Azure Entra ID).
type TokenBasedConnector struct {
	config        *hiveseed.ConnectionConfig
	tokenProvider TokenProvider
	providerName  string
	logger        hiveseed.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *hiveseed.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger hiveseed.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	c.logger.Verbose("Acquiring %s token from %s", c.providerName, c.tokenProvider)
	token, expiresOn, err := c.tokenProvider.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s token: %w",
			c.providerName, hiveseed.NewEngineError("connect", "", hiveseed.ErrEngineUnavailable, err))
	}

	if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
		c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
	}

	withToken := *c.config
	withToken.Password = token
	return openPool(ctx, BuildConnectionString(&withToken), c.config, c.logger)
}
