package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"smc/config"
	"smc/logx"
	"smc/wallet"
)

var (
	initDataDir     string
	initKeystoreDir string
	initGenesisPath string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the node data and keystore directories",
	Long: `Initialize a new node by:
- Creating the data and keystore directories
- Generating the node identity key
- Validating the genesis allocation file if present

Safe to run more than once; existing keys and data are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		initializeNode()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "./data", "Directory to keep node data")
	initCmd.Flags().StringVar(&initKeystoreDir, "keystore-dir", "./keystore", "Directory to keep account keys")
	initCmd.Flags().StringVar(&initGenesisPath, "genesis", "config/genesis.yml", "Path to genesis allocation file")
}

func initializeNode() {
	if _, err := loadOrCreateNodeKey(initDataDir); err != nil {
		logx.Error("INIT", "Failed to set up node identity:", err.Error())
		os.Exit(1)
	}

	if _, err := wallet.NewManager(initKeystoreDir); err != nil {
		logx.Error("INIT", "Failed to set up keystore:", err.Error())
		os.Exit(1)
	}

	if _, err := os.Stat(initGenesisPath); err == nil {
		genesis, err := config.LoadGenesisConfig(initGenesisPath)
		if err != nil {
			logx.Error("INIT", "Invalid genesis file:", err.Error())
			os.Exit(1)
		}
		if _, err := genesis.ParseAlloc(); err != nil {
			logx.Error("INIT", "Invalid genesis allocation:", err.Error())
			os.Exit(1)
		}
		logx.Info("INIT", "Genesis allocation validated:", initGenesisPath)
	} else {
		logx.Warn("INIT", "No genesis file at", initGenesisPath)
	}

	logx.Info("INIT", "Node initialized: data=", initDataDir, " keystore=", initKeystoreDir)
}
