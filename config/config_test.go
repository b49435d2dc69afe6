package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
)

const sampleGenesis = `genesis:
  alloc:
    ECkzPd5pGRDNWTjrVYdVczafsGACHqfmgKzxcFpitzU: "1000000"
    EKFiCgz4CDrVfx6FS5LR87TDL82TKNuY1uk1vqTzpcgi: "2000000000000000000"
`

const sampleConfig = `[node]
listen_addr = :3200
allow_self_transfer = false

[mempool]
max_txs = 50

[storage]
backend = memory

[p2p]
enable_mdns = false
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadGenesisConfig(t *testing.T) {
	path := writeFile(t, "genesis.yml", sampleGenesis)

	genesis, err := LoadGenesisConfig(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}

	alloc, err := genesis.ParseAlloc()
	if err != nil {
		t.Fatalf("parse alloc: %v", err)
	}
	if len(alloc) != 2 {
		t.Fatalf("alloc len = %d, want 2", len(alloc))
	}
	want := uint256.MustFromDecimal("2000000000000000000")
	if alloc["EKFiCgz4CDrVfx6FS5LR87TDL82TKNuY1uk1vqTzpcgi"].Cmp(want) != 0 {
		t.Fatalf("alloc amount mismatch")
	}
}

func TestParseAllocRejectsBadAddress(t *testing.T) {
	g := &GenesisConfig{Alloc: map[string]string{"not-base58-0OIl": "100"}}
	if _, err := g.ParseAlloc(); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}

func TestParseAllocRejectsBadAmount(t *testing.T) {
	g := &GenesisConfig{Alloc: map[string]string{
		"ECkzPd5pGRDNWTjrVYdVczafsGACHqfmgKzxcFpitzU": "not-a-number",
	}}
	if _, err := g.ParseAlloc(); err == nil {
		t.Fatalf("expected error for invalid amount")
	}
}

func TestLoadAppConfigOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "config.ini", sampleConfig)

	cfg, err := LoadAppConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Node.ListenAddr != ":3200" {
		t.Fatalf("listen_addr = %s, want :3200", cfg.Node.ListenAddr)
	}
	if cfg.Node.AllowSelfTransfer {
		t.Fatalf("allow_self_transfer should be false")
	}
	if cfg.Mempool.MaxTxs != 50 {
		t.Fatalf("max_txs = %d, want 50", cfg.Mempool.MaxTxs)
	}
	if cfg.Storage.Backend != "memory" {
		t.Fatalf("backend = %s, want memory", cfg.Storage.Backend)
	}
	// Untouched sections keep their defaults.
	if cfg.Node.KeystoreDir != "./keystore" {
		t.Fatalf("keystore_dir = %s, want default", cfg.Node.KeystoreDir)
	}
}

func TestLoadAppConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadAppConfig(filepath.Join(t.TempDir(), "nope.ini"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Node.ListenAddr != ":2048" {
		t.Fatalf("default listen_addr = %s, want :2048", cfg.Node.ListenAddr)
	}
	if !cfg.P2P.EnableMdns {
		t.Fatalf("mdns should default on")
	}
}
