package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mcp-client/client"
	"mcp-client/loadbalance"
	"mcp-client/metrics"
	"mcp-client/middleware"
	"mcp-client/registry"
)

// loadConfig merges flags, MCPCLI_* environment variables and an optional
// YAML file into the client configuration.
func loadConfig(v *viper.Viper) (client.Config, error) {
	v.SetEnvPrefix("MCPCLI")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return client.Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	kind, err := client.ParseTransportKind(v.GetString("transport"))
	if err != nil {
		return client.Config{}, err
	}

	cfg := client.DefaultConfig(v.GetString("server_url"))
	cfg.APIKey = v.GetString("api_key")
	cfg.Transport = kind
	cfg.MaxRetries = v.GetInt("max_retries")
	if d := v.GetDuration("timeout"); d > 0 {
		cfg.Timeout = d
	}
	if d := v.GetDuration("retry_delay"); d > 0 {
		cfg.RetryDelay = d
	}
	return cfg, nil
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(v.GetString("log_level")); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// newClient assembles a client from the merged configuration: logger,
// metrics, logging middleware, and optional etcd-based server discovery.
func newClient(v *viper.Viper) (*client.Client, *zap.Logger, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(v)
	if err != nil {
		return nil, nil, err
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMetrics(metrics.New()),
		client.WithMiddleware(middleware.Logging(logger)),
	}

	if endpoints := v.GetStringSlice("etcd"); len(endpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(endpoints)
		if err != nil {
			return nil, nil, fmt.Errorf("connect registry: %w", err)
		}
		opts = append(opts, client.WithRegistry(reg, v.GetString("cluster"), &loadbalance.RoundRobinBalancer{}))
	}

	c, err := client.New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return c, logger, nil
}

// commandTimeout bounds one CLI invocation end to end, padding the per-call
// timeout so transport-level retries get room to finish.
func commandTimeout(v *viper.Viper) time.Duration {
	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := time.Duration(v.GetInt("max_retries"))
	delay := v.GetDuration("retry_delay")
	if delay <= 0 {
		delay = time.Second
	}
	return timeout*(retries+1) + delay*retries + 5*time.Second
}
