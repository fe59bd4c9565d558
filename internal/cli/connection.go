package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/vvka-141/hiveseed/internal/config"
	"github.com/vvka-141/hiveseed/internal/db"
	"github.com/vvka-141/hiveseed/internal/files/filesystem"
	"github.com/vvka-141/hiveseed/pkg/hiveseed"
)

// loadManifest reads the manifest named by args, or ./hiveseed.yaml, or
// falls back to the built-in manifest when neither exists.
func loadManifest(fsys filesystem.FileSystemProvider, args []string) (*config.Manifest, error) {
	if len(args) == 1 {
		m, err := config.Load(fsys, args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to load manifest: %w", err)
		}
		return m, nil
	}

	m, err := config.Load(fsys, ".")
	if errors.Is(err, config.ErrConfigNotFound) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return m, nil
}

// resolveLivy merges the Livy endpoint from flags, environment and manifest.
// The password is only read from $LIVY_PASSWORD.
func resolveLivy(urlFlag string, m *config.Manifest) (hiveseed.LivyConfig, error) {
	poll, err := m.LivyPollInterval()
	if err != nil {
		return hiveseed.LivyConfig{}, err
	}
	return hiveseed.LivyConfig{
		URL:          firstNonEmpty(urlFlag, os.Getenv("LIVY_URL"), m.Engine.Livy.URL),
		Username:     firstNonEmpty(os.Getenv("LIVY_USERNAME"), m.Engine.Livy.Username),
		Password:     os.Getenv("LIVY_PASSWORD"),
		SessionKind:  firstNonEmpty(m.Engine.Livy.SessionKind, hiveseed.DefaultLivySessionKind),
		PollInterval: poll,
		Conf:         m.Engine.Livy.Conf,
	}, nil
}

// resolveConnection resolves the postgres engine connection from flags,
// environment variables and the manifest.
func resolveConnection(
	connStringFlag string,
	granularFlags *db.GranularConnFlags,
	cloudFlags *db.CloudFlags,
	m *config.Manifest,
) (*hiveseed.ConnectionConfig, error) {
	connConfig, err := db.ResolveConnectionParams(
		connStringFlag,
		granularFlags,
		cloudFlags,
		db.LoadFromEnvironment(),
		&m.Engine.Connection,
	)
	if err != nil {
		return nil, err
	}
	if connConfig.AppName == "" {
		connConfig.AppName = "hiveseed"
	}
	return connConfig, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
