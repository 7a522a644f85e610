package redisutil

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/d2oracle/oracle/core/infra/tlsutil"
	"github.com/redis/go-redis/v9"
)

const (
	envRedisTLSCA         = "ORACLE_REDIS_TLS_CA"
	envRedisTLSCert       = "ORACLE_REDIS_TLS_CERT"
	envRedisTLSKey        = "ORACLE_REDIS_TLS_KEY"
	envRedisTLSInsecure   = "ORACLE_REDIS_TLS_INSECURE"
	envRedisTLSServerName = "ORACLE_REDIS_TLS_SERVER_NAME"

	pingTimeout = 2 * time.Second
)

var redisTLSEnv = tlsutil.EnvVars{
	CA:         envRedisTLSCA,
	Cert:       envRedisTLSCert,
	Key:        envRedisTLSKey,
	Insecure:   envRedisTLSInsecure,
	ServerName: envRedisTLSServerName,
}

// Connect parses url, applies TLS settings from the environment and pings the server.
func Connect(url string) (*redis.Client, error) {
	opts, err := ParseOptions(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

// ParseOptions parses a Redis URL and applies TLS settings from the environment.
func ParseOptions(url string) (*redis.Options, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	tlsConfig, err := tlsConfigFromEnv(opts.TLSConfig)
	if err != nil {
		return nil, err
	}
	opts.TLSConfig = tlsConfig
	return opts, nil
}

func tlsConfigFromEnv(existing *tls.Config) (*tls.Config, error) {
	cfg, err := tlsutil.FromEnv(redisTLSEnv, existing)
	if err != nil {
		return nil, fmt.Errorf("redis tls: %w", err)
	}
	return cfg, nil
}
