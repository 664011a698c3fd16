// Package wiring assembles a *aigateway.Gateway from environment
// variables for the two command binaries (cmd/gatewayd, cmd/gatewayctl)
// that would otherwise duplicate the same env-driven construction the
// teacher's cmd/ferrogw/main.go inlines for its single binary.
package wiring

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	aigateway "github.com/ferro-labs/llm-orchestration-gateway"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/configstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/secretstore"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/usagelog"
)

// Built holds the Gateway plus collaborators a caller needs to close on
// shutdown.
type Built struct {
	Gateway     *aigateway.Gateway
	ConfigStore *configstore.Store
	sqlConfig   *configstore.SQLStore
	sqlUsage    *usagelog.SQLWriter
}

// Close releases any SQL-backed collaborators. Safe to call even when
// the gateway was built entirely in-memory.
func (b *Built) Close() error {
	var errs []string
	if b.sqlConfig != nil {
		if err := b.sqlConfig.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if b.sqlUsage != nil {
		if err := b.sqlUsage.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("wiring: close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Build reads GatewayOptions and persistence/secret-backend selection
// from the environment, constructs the Gateway, and calls Initialize.
//
// Recognized environment variables beyond spec.md §6.6's GatewayOptions
// set: GATEWAY_CONFIG (path to a GatewayOptions YAML/JSON file, optional —
// defaults applied otherwise), CONFIG_STORE_DSN / USAGE_LOG_DSN (sqlite:
// or postgres: DSNs; omitted means in-memory config and a no-op usage
// writer), and one block of backend-specific vars per SECRET_STORE_KIND
// (documented per-backend below).
func Build(ctx context.Context) (*Built, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}

	configStore, sqlConfig, err := buildConfigStore()
	if err != nil {
		return nil, err
	}

	secrets, err := buildSecretStore(ctx, opts.SecretStoreKind)
	if err != nil {
		return nil, err
	}

	usageWriter, sqlUsage, err := buildUsageWriter()
	if err != nil {
		return nil, err
	}

	gw := aigateway.New(opts, configStore, secrets, usageWriter)
	if sqlUsage != nil {
		gw.SetAnalyticsSource(sqlUsage)
	}
	if err := gw.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("wiring: initialize gateway: %w", err)
	}

	return &Built{Gateway: gw, ConfigStore: configStore, sqlConfig: sqlConfig, sqlUsage: sqlUsage}, nil
}

func loadOptions() (aigateway.GatewayOptions, error) {
	if path := os.Getenv("GATEWAY_CONFIG"); path != "" {
		cfg, err := aigateway.LoadConfig(path)
		if err != nil {
			return aigateway.GatewayOptions{}, fmt.Errorf("wiring: load %s: %w", path, err)
		}
		return *cfg, nil
	}

	opts := aigateway.DefaultOptions()
	if v := os.Getenv("SECRET_STORE_KIND"); v != "" {
		opts.SecretStoreKind = v
	}
	if v := envInt("CACHE_CAPACITY"); v > 0 {
		opts.CacheCapacity = v
	}
	if v := envSeconds("CACHE_DEFAULT_TTL"); v > 0 {
		opts.CacheDefaultTTL = v
	}
	if v := envSeconds("HEALTH_CHECK_INTERVAL"); v > 0 {
		opts.HealthInterval = v
	}
	if v := envMillis("REQUEST_TIMEOUT_MS"); v > 0 {
		opts.RequestTimeout = v
	}
	if v := envInt("USAGE_FLUSH_BATCH"); v > 0 {
		opts.UsageFlushBatch = v
	}
	return opts, nil
}

func buildConfigStore() (*configstore.Store, *configstore.SQLStore, error) {
	dsn := os.Getenv("CONFIG_STORE_DSN")
	if dsn == "" {
		store, err := configstore.New(nil)
		return store, nil, err
	}

	sqlStore, err := openSQLStore(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("wiring: open config store: %w", err)
	}
	store, err := configstore.New(sqlStore)
	if err != nil {
		return nil, nil, fmt.Errorf("wiring: load persisted config: %w", err)
	}
	return store, sqlStore, nil
}

func openSQLStore(dsn string) (*configstore.SQLStore, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return configstore.NewPostgresStore(dsn)
	}
	return configstore.NewSQLiteStore(strings.TrimPrefix(dsn, "sqlite:"))
}

func buildUsageWriter() (usagelog.Writer, *usagelog.SQLWriter, error) {
	dsn := os.Getenv("USAGE_LOG_DSN")
	if dsn == "" {
		return usagelog.NoopWriter{}, nil, nil
	}

	var (
		w   *usagelog.SQLWriter
		err error
	)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		w, err = usagelog.NewPostgresWriter(dsn)
	} else {
		w, err = usagelog.NewSQLiteWriter(strings.TrimPrefix(dsn, "sqlite:"))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("wiring: open usage log: %w", err)
	}
	return w, w, nil
}

// buildSecretStore registers the one backend named by kind. Each
// backend's credentials follow its own env vars, per spec.md §6.6.
func buildSecretStore(ctx context.Context, kind string) (*secretstore.Store, error) {
	store := secretstore.New(envSeconds("SECRET_CACHE_TTL"))

	switch secretstore.Kind(kind) {
	case secretstore.LocalEnv, "":
		store.Register(secretstore.LocalEnv, secretstore.NewLocalEnvBackend())
	case secretstore.CloudManagedA:
		backend, err := secretstore.NewAWSBackend(ctx,
			os.Getenv("AWS_REGION"),
			os.Getenv("AWS_SECRETS_ENDPOINT"),
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
		)
		if err != nil {
			return nil, fmt.Errorf("wiring: cloud-managed-A backend: %w", err)
		}
		store.Register(secretstore.CloudManagedA, backend)
	case secretstore.CloudManagedB:
		var scopes []string
		if s := os.Getenv("OAUTH2_SCOPES"); s != "" {
			scopes = strings.Split(s, ",")
		}
		store.Register(secretstore.CloudManagedB, secretstore.NewOAuth2Backend(ctx,
			os.Getenv("OAUTH2_CLIENT_ID"),
			os.Getenv("OAUTH2_CLIENT_SECRET"),
			os.Getenv("OAUTH2_TOKEN_URL"),
			os.Getenv("OAUTH2_SECRETS_BASE_URL"),
			scopes,
		))
	case secretstore.SelfHosted:
		store.Register(secretstore.SelfHosted, secretstore.NewSelfHostedBackend(
			os.Getenv("VAULT_ADDR"),
			os.Getenv("VAULT_TOKEN"),
		))
	default:
		return nil, fmt.Errorf("wiring: unknown SECRET_STORE_KIND %q", kind)
	}
	return store, nil
}

func envInt(name string) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return 0
	}
	return v
}

func envSeconds(name string) time.Duration {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Second
}

func envMillis(name string) time.Duration {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return 0
	}
	return time.Duration(v) * time.Millisecond
}
