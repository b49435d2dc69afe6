package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"smc/logx"
)

var rpcEndpoint string

var rootCmd = &cobra.Command{
	Use:   "smc",
	Short: "SMC currency node CLI",
	Long:  "Command line interface for running and managing an SMC currency node.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rpcEndpoint, "endpoint", "http://127.0.0.1:2048", "Node RPC endpoint")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
