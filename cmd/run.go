package cmd

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smc/config"
	"smc/events"
	"smc/exception"
	"smc/gateway"
	"smc/jsonrpc"
	"smc/ledger"
	"smc/logx"
	"smc/mempool"
	"smc/monitoring"
	"smc/p2p"
	"smc/store"
	"smc/validator"
	"smc/wallet"
)

const nodeKeyFile = "node_key.txt"

var (
	runConfigPath  string
	runGenesisPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the currency node daemon",
	Run: func(cmd *cobra.Command, args []string) {
		runNode()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/config.ini", "Path to node configuration file")
	runCmd.Flags().StringVar(&runGenesisPath, "genesis", "config/genesis.yml", "Path to genesis allocation file")
}

func runNode() {
	monitoring.InitMetrics()

	cfg, err := config.LoadAppConfig(runConfigPath)
	if err != nil {
		logx.Error("NODE", "Failed to load configuration:", err.Error())
		os.Exit(1)
	}

	accountStore, txStore, err := store.CreateStore(&store.StoreConfig{
		Type:      store.StoreType(cfg.Storage.Backend),
		Directory: cfg.Storage.Directory,
	})
	if err != nil {
		logx.Error("NODE", "Failed to open store:", err.Error())
		os.Exit(1)
	}
	defer accountStore.MustClose()

	eventBus := events.NewEventBus()
	eventRouter := events.NewEventRouter(eventBus)
	statusTracker := events.NewStatusTracker(eventBus, 0)
	defer statusTracker.Stop()

	ld, err := ledger.NewLedger(accountStore, txStore, eventRouter, cfg.Node.AllowSelfTransfer)
	if err != nil {
		logx.Error("NODE", "Failed to build ledger:", err.Error())
		os.Exit(1)
	}

	if err := seedGenesis(ld, runGenesisPath); err != nil {
		logx.Error("NODE", "Failed to seed genesis allocation:", err.Error())
		os.Exit(1)
	}

	dedup := mempool.NewDedupService()
	dedup.SeedFromStore(txStore)
	mp := mempool.NewMempool(cfg.Mempool.MaxTxs)
	pipeline := validator.NewPipeline(ld, dedup, eventRouter)

	walletMgr, err := wallet.NewManager(cfg.Node.KeystoreDir)
	if err != nil {
		logx.Error("NODE", "Failed to open keystore:", err.Error())
		os.Exit(1)
	}

	nodeKey, err := loadOrCreateNodeKey(cfg.Node.DataDir)
	if err != nil {
		logx.Error("NODE", "Failed to load node identity key:", err.Error())
		os.Exit(1)
	}

	network, err := p2p.NewNetwork(nodeKey, cfg.P2P.ListenAddr, cfg.P2P.BootstrapPeers, cfg.P2P.EnableMdns)
	if err != nil {
		logx.Error("NODE", "Failed to start network:", err.Error())
		os.Exit(1)
	}
	defer network.Close()

	gw := gateway.NewGateway(pipeline, network, mp, 1024)
	network.SetTxReceiveHandler(gw.OnReceive)
	gw.Start()
	defer gw.Stop()

	rpcServer := jsonrpc.NewServer(cfg.Node.ListenAddr, walletMgr, ld, gw, mp)
	rpcServer.SetRateLimit(cfg.Node.RPCRateLimit)
	rpcServer.SetStatusTracker(statusTracker)
	rpcServer.Start()

	startMetricsServer(cfg.Node.MetricsAddr)

	logx.Info("NODE", fmt.Sprintf("Node up: rpc=%s metrics=%s peer_id=%s", cfg.Node.ListenAddr, cfg.Node.MetricsAddr, network.HostID()))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("NODE", "Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rpcServer.Stop(ctx); err != nil {
		logx.Error("NODE", "RPC shutdown:", err.Error())
	}
}

func seedGenesis(ld *ledger.Ledger, genesisPath string) error {
	if _, err := os.Stat(genesisPath); os.IsNotExist(err) {
		logx.Warn("NODE", "No genesis file at", genesisPath, ", starting with an empty ledger")
		return nil
	}

	genesis, err := config.LoadGenesisConfig(genesisPath)
	if err != nil {
		return err
	}
	alloc, err := genesis.ParseAlloc()
	if err != nil {
		return err
	}
	return ld.CreateAccountsFromGenesis(alloc)
}

// loadOrCreateNodeKey reads the hex-encoded ed25519 seed that identifies
// this node on the p2p network, generating one on first run.
func loadOrCreateNodeKey(dataDir string) (ed25519.PrivateKey, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create data directory: %w", err)
	}

	path := filepath.Join(dataDir, nodeKeyFile)
	if data, err := os.ReadFile(path); err == nil {
		seed, err := hex.DecodeString(string(data))
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("corrupt node key file %s", path)
		}
		return ed25519.NewKeyFromSeed(seed), nil
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("could not generate node key: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600); err != nil {
		return nil, fmt.Errorf("could not persist node key: %w", err)
	}
	logx.Info("NODE", "Generated new node identity key at", path)
	return ed25519.NewKeyFromSeed(seed), nil
}

func startMetricsServer(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)
	exception.SafeGo("MetricsServer", func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logx.Error("NODE", "Metrics server stopped:", err.Error())
		}
	})
}
