package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// DefaultListenPort is the port the daemon serves RPC on unless configured
const DefaultListenPort = 2048

// NodeConfig holds the [node] section of config.ini
type NodeConfig struct {
	ListenAddr        string `ini:"listen_addr"`
	MetricsAddr       string `ini:"metrics_addr"`
	DataDir           string `ini:"data_dir"`
	KeystoreDir       string `ini:"keystore_dir"`
	AllowSelfTransfer bool   `ini:"allow_self_transfer"`
	RPCRateLimit      int    `ini:"rpc_rate_limit"`
}

// MempoolConfig holds the [mempool] section
type MempoolConfig struct {
	MaxTxs int `ini:"max_txs"`
}

// StorageConfig holds the [storage] section
type StorageConfig struct {
	Backend   string `ini:"backend"`
	Directory string `ini:"directory"`
}

// P2PConfig holds the [p2p] section
type P2PConfig struct {
	ListenAddr     string   `ini:"listen_addr"`
	BootstrapPeers []string `ini:"bootstrap_peers"`
	EnableMdns     bool     `ini:"enable_mdns"`
}

// AppConfig is the full parsed node configuration
type AppConfig struct {
	Node    NodeConfig
	Mempool MempoolConfig
	Storage StorageConfig
	P2P     P2PConfig
}

// DefaultConfig returns the configuration a node runs with when config.ini
// is absent or a section is missing.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Node: NodeConfig{
			ListenAddr:        fmt.Sprintf(":%d", DefaultListenPort),
			MetricsAddr:       ":9100",
			DataDir:           "./data",
			KeystoreDir:       "./keystore",
			AllowSelfTransfer: true,
			RPCRateLimit:      200,
		},
		Mempool: MempoolConfig{
			MaxTxs: 10000,
		},
		Storage: StorageConfig{
			Backend:   "leveldb",
			Directory: "./data/ledger",
		},
		P2P: P2PConfig{
			ListenAddr: "/ip4/0.0.0.0/tcp/0",
			EnableMdns: true,
		},
	}
}

// LoadAppConfig reads config.ini, overlaying the defaults with whatever the
// file sets. A missing file is not an error.
func LoadAppConfig(path string) (*AppConfig, error) {
	appCfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return appCfg, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("could not load config file %s: %w", path, err)
	}

	if err := cfg.Section("node").MapTo(&appCfg.Node); err != nil {
		return nil, fmt.Errorf("invalid [node] section: %w", err)
	}
	if err := cfg.Section("mempool").MapTo(&appCfg.Mempool); err != nil {
		return nil, fmt.Errorf("invalid [mempool] section: %w", err)
	}
	if err := cfg.Section("storage").MapTo(&appCfg.Storage); err != nil {
		return nil, fmt.Errorf("invalid [storage] section: %w", err)
	}
	if err := cfg.Section("p2p").MapTo(&appCfg.P2P); err != nil {
		return nil, fmt.Errorf("invalid [p2p] section: %w", err)
	}

	return appCfg, nil
}

// LoadGenesisConfig reads and parses the genesis.yml file
func LoadGenesisConfig(path string) (*GenesisConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open genesis file %s: %w", path, err)
	}
	defer file.Close()

	var cfgFile ConfigFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		return nil, fmt.Errorf("could not decode genesis file %s: %w", path, err)
	}
	return &cfgFile.Genesis, nil
}
