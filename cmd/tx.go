package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"smc/client"
)

var (
	txTextData string
	txFile     string
	txLimit    uint32
	txOffset   uint32
	txFilter   uint32
)

var txCmd = &cobra.Command{
	Use:   "tx",
	Short: "Create and inspect transactions on a running node",
}

var txSendCmd = &cobra.Command{
	Use:   "send <sender> <recipient> <amount-finks>",
	Short: "Build, sign and publish a transfer in one step",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.Send(ctx, args[0], args[1], args[2], txTextData)
			if err != nil {
				return err
			}
			fmt.Printf("applied: %s\n", res.TxHash)
			return nil
		})
	},
}

var txCreateCmd = &cobra.Command{
	Use:   "create <sender> <recipient> <amount-finks>",
	Short: "Build an unsigned transaction and print it as JSON",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			env, err := c.CreateTx(ctx, args[0], args[1], args[2], txTextData)
			if err != nil {
				return err
			}
			return writeTxEnvelope(env.Tx)
		})
	},
}

var txSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a transaction read from --file or stdin",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			raw, err := readTxEnvelope()
			if err != nil {
				return err
			}
			env, err := c.SignTx(ctx, raw)
			if err != nil {
				return err
			}
			return writeTxEnvelope(env.Tx)
		})
	},
}

var txPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a signed transaction read from --file or stdin",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			raw, err := readTxEnvelope()
			if err != nil {
				return err
			}
			res, err := c.PublishTx(ctx, raw)
			if err != nil {
				return err
			}
			fmt.Printf("applied: %s\n", res.TxHash)
			return nil
		})
	},
}

var txGetCmd = &cobra.Command{
	Use:   "get <tx-hash>",
	Short: "Show a transaction by hash",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			info, err := c.GetTxByHash(ctx, args[0])
			if err != nil {
				return err
			}
			printTxInfo(info)
			return nil
		})
	},
}

var txStatusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Show the lifecycle state of a transaction, including rejections",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.TxStatus(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("hash:  %s\nstate: %s\n", res.TxHash, res.State)
			if res.Reason != "" {
				fmt.Printf("reason: %s\n", res.Reason)
			}
			return nil
		})
	},
}

var txHistoryCmd = &cobra.Command{
	Use:   "history <address>",
	Short: "Show an address's transaction history",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.GetTxHistory(ctx, args[0], txLimit, txOffset, txFilter)
			if err != nil {
				return err
			}
			fmt.Printf("total: %d\n", res.Total)
			for i := range res.Txs {
				fmt.Println("---")
				printTxInfo(&res.Txs[i])
			}
			return nil
		})
	},
}

func readTxEnvelope() ([]byte, error) {
	if txFile == "" || txFile == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(txFile)
}

func writeTxEnvelope(raw []byte) error {
	_, err := fmt.Println(string(raw))
	return err
}

func printTxInfo(info *client.TxInfo) {
	fmt.Printf("hash:      %s\nstate:     %s\nsender:    %s\nrecipient: %s\namount:    %s finks\nnonce:     %d\n",
		info.TxHash, info.State, info.Sender, info.Recipient, info.Amount, info.Nonce)
	if info.TextData != "" {
		fmt.Printf("text:      %s\n", info.TextData)
	}
	if info.Reason != "" {
		fmt.Printf("reason:    %s\n", info.Reason)
	}
}

func init() {
	rootCmd.AddCommand(txCmd)
	txSendCmd.Flags().StringVar(&txTextData, "text", "", "Optional memo attached to the transfer")
	txCreateCmd.Flags().StringVar(&txTextData, "text", "", "Optional memo attached to the transfer")
	txSignCmd.Flags().StringVar(&txFile, "file", "", "Transaction JSON file, - for stdin")
	txPublishCmd.Flags().StringVar(&txFile, "file", "", "Transaction JSON file, - for stdin")
	txHistoryCmd.Flags().Uint32Var(&txLimit, "limit", 50, "Maximum transactions to return")
	txHistoryCmd.Flags().Uint32Var(&txOffset, "offset", 0, "Offset into the history")
	txHistoryCmd.Flags().Uint32Var(&txFilter, "filter", 0, "0 all, 1 sent, 2 received")
	txCmd.AddCommand(txSendCmd, txCreateCmd, txSignCmd, txPublishCmd, txGetCmd, txStatusCmd, txHistoryCmd)
}
