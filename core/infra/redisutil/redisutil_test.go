package redisutil

import (
	"errors"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/d2oracle/oracle/core/infra/tlsutil"
)

func TestParseOptionsNoTLS(t *testing.T) {
	opts, err := ParseOptions("redis://localhost:6379/2")
	if err != nil {
		t.Fatalf("ParseOptions error: %v", err)
	}
	if opts.TLSConfig != nil {
		t.Fatalf("expected nil TLS config")
	}
	if opts.DB != 2 {
		t.Fatalf("expected db 2, got %d", opts.DB)
	}
}

func TestParseOptionsInsecureTLS(t *testing.T) {
	t.Setenv(envRedisTLSInsecure, "yes")
	opts, err := ParseOptions("redis://localhost:6379")
	if err != nil {
		t.Fatalf("ParseOptions error: %v", err)
	}
	if opts.TLSConfig == nil || !opts.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure TLS config")
	}
}

func TestParseOptionsServerNameOverridesRediss(t *testing.T) {
	t.Setenv(envRedisTLSServerName, "cache.internal")
	opts, err := ParseOptions("rediss://localhost:6380")
	if err != nil {
		t.Fatalf("ParseOptions error: %v", err)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.ServerName != "cache.internal" {
		t.Fatalf("expected server name override, got %#v", opts.TLSConfig)
	}
}

func TestParseOptionsPartialKeyPair(t *testing.T) {
	t.Setenv(envRedisTLSKey, filepath.Join(t.TempDir(), "client.key"))
	_, err := ParseOptions("redis://localhost:6379")
	if !errors.Is(err, tlsutil.ErrPartialKeyPair) {
		t.Fatalf("expected partial key pair error, got %v", err)
	}
}

func TestConnect(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	defer srv.Close()
	addr := srv.Addr()

	client, err := Connect("redis://" + addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	_ = client.Close()

	if _, err := Connect("not-a-url"); err == nil {
		t.Fatalf("expected parse error")
	}
	srv.Close()
	if _, err := Connect("redis://" + addr); err == nil {
		t.Fatalf("expected ping error after server close")
	}
}
