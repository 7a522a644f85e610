package tlsutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var testVars = EnvVars{
	CA:         "TEST_TLS_CA",
	Cert:       "TEST_TLS_CERT",
	Key:        "TEST_TLS_KEY",
	Insecure:   "TEST_TLS_INSECURE",
	ServerName: "TEST_TLS_SERVER_NAME",
}

func TestFromEnv(t *testing.T) {
	dir := t.TempDir()
	certPath, keyPath := writeTestKeyPair(t, dir)
	junkPath := filepath.Join(dir, "junk.pem")
	if err := os.WriteFile(junkPath, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	cases := []struct {
		name      string
		env       map[string]string
		wantNil   bool
		wantErr   bool
		wantRoots bool
		wantCerts int
	}{
		{name: "unset", wantNil: true},
		{name: "insecure only", env: map[string]string{testVars.Insecure: "yes"}},
		{name: "ca and keypair", env: map[string]string{
			testVars.CA: certPath, testVars.Cert: certPath, testVars.Key: keyPath,
		}, wantRoots: true, wantCerts: 1},
		{name: "cert without key", env: map[string]string{testVars.Cert: certPath}, wantErr: true},
		{name: "unparseable ca", env: map[string]string{testVars.CA: junkPath}, wantErr: true},
		{name: "missing ca file", env: map[string]string{testVars.CA: filepath.Join(dir, "nope.pem")}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, key := range []string{testVars.CA, testVars.Cert, testVars.Key, testVars.Insecure, testVars.ServerName} {
				t.Setenv(key, tc.env[key])
			}
			cfg, err := FromEnv(testVars, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantNil {
				if cfg != nil {
					t.Fatalf("expected nil config")
				}
				return
			}
			if cfg == nil || cfg.MinVersion != tls.VersionTLS12 {
				t.Fatalf("expected TLS 1.2 minimum, got %#v", cfg)
			}
			if (cfg.RootCAs != nil) != tc.wantRoots {
				t.Fatalf("root CAs set = %v, want %v", cfg.RootCAs != nil, tc.wantRoots)
			}
			if len(cfg.Certificates) != tc.wantCerts {
				t.Fatalf("expected %d certificates, got %d", tc.wantCerts, len(cfg.Certificates))
			}
			if cfg.InsecureSkipVerify != (tc.env[testVars.Insecure] == "yes") {
				t.Fatalf("unexpected InsecureSkipVerify %v", cfg.InsecureSkipVerify)
			}
		})
	}
}

func TestFromEnvClonesBase(t *testing.T) {
	t.Setenv(testVars.ServerName, "cache.internal")
	base := &tls.Config{MinVersion: tls.VersionTLS13}
	cfg, err := FromEnv(testVars, base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == base || cfg.ServerName != "cache.internal" || cfg.MinVersion != tls.VersionTLS13 {
		t.Fatalf("expected clone of base with server name, got %#v", cfg)
	}
	if base.ServerName != "" {
		t.Fatalf("base config mutated")
	}
}

func TestFromEnvUnsetKeepsBase(t *testing.T) {
	base := &tls.Config{ServerName: "kept"}
	cfg, err := FromEnv(EnvVars{}, base)
	if err != nil || cfg != base {
		t.Fatalf("expected base returned, got %#v %v", cfg, err)
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"1", "true", " YES ", "y", "on"} {
		if !ParseBool(v) {
			t.Fatalf("expected %q to be true", v)
		}
	}
	for _, v := range []string{"", "0", "false", "off", "maybe"} {
		if ParseBool(v) {
			t.Fatalf("expected %q to be false", v)
		}
	}
}

func writeTestKeyPair(t *testing.T, dir string) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(7),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	certPath := filepath.Join(dir, "client.crt")
	keyPath := filepath.Join(dir, "client.key")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certPath, keyPath
}
