// Package tlsutil builds client TLS settings from operator-provided environment variables.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvVars names the variables consulted by FromEnv. Empty names are skipped.
type EnvVars struct {
	CA         string
	Cert       string
	Key        string
	Insecure   string
	ServerName string
}

// ErrPartialKeyPair is returned when only one of cert and key is configured.
var ErrPartialKeyPair = errors.New("cert/key must be set together")

// FromEnv layers the configured variables over base. It returns base unchanged when none are set.
func FromEnv(vars EnvVars, base *tls.Config) (*tls.Config, error) {
	caPath := lookup(vars.CA)
	certPath := lookup(vars.Cert)
	keyPath := lookup(vars.Key)
	serverName := lookup(vars.ServerName)
	insecure := ParseBool(lookup(vars.Insecure))
	if caPath == "" && certPath == "" && keyPath == "" && serverName == "" && !insecure {
		return base, nil
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if base != nil {
		cfg = base.Clone()
	}
	if serverName != "" {
		cfg.ServerName = serverName
	}
	// #nosec G402 -- opt-in for local development only.
	cfg.InsecureSkipVerify = insecure

	if caPath != "" {
		pool, err := loadPool(caPath)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if certPath != "" || keyPath != "" {
		if certPath == "" || keyPath == "" {
			return nil, ErrPartialKeyPair
		}
		cert, err := tls.LoadX509KeyPair(certPath, keyPath)
		if err != nil {
			return nil, fmt.Errorf("keypair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// ParseBool accepts the usual truthy spellings; anything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func loadPool(path string) (*x509.CertPool, error) {
	// #nosec G304 -- operator-provided path.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ca read: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("ca parse: %s", path)
	}
	return pool, nil
}

func lookup(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(key))
}
