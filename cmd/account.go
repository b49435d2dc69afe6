package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"smc/client"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts on a running node",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account keypair",
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.CreateAccount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("address:    %s\npublic key: %s\n", res.Address, res.PublicKey)
			return nil
		})
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List managed accounts",
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.ListAccounts(ctx)
			if err != nil {
				return err
			}
			for _, addr := range res.Addresses {
				fmt.Println(addr)
			}
			return nil
		})
	},
}

var accountGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Show a managed account's key record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.GetKeyRecord(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("address:    %s\npublic key: %s\nlocked:     %v\ncreated:    %s\n",
				res.Address, res.PublicKey, res.Locked, time.Unix(res.CreatedAt, 0).Format(time.RFC3339))
			return nil
		})
	},
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete <address>",
	Short: "Delete a managed account's key (unrecoverable)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			if err := c.DeleteAccount(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("deleted", args[0])
			return nil
		})
	},
}

var accountLockCmd = &cobra.Command{
	Use:   "lock <address> <passphrase>",
	Short: "Encrypt an account's key under a passphrase",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			if err := c.LockAccount(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("locked", args[0])
			return nil
		})
	},
}

var accountUnlockCmd = &cobra.Command{
	Use:   "unlock <address> <passphrase>",
	Short: "Decrypt an account's key with its passphrase",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			if err := c.UnlockAccount(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("unlocked", args[0])
			return nil
		})
	},
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show an address's ledger balance",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withClient(func(ctx context.Context, c *client.RpcClient) error {
			res, err := c.GetBalance(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s finks (%s SMC)\n", res.Finks, res.SMC)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd, accountListCmd, accountGetCmd, accountDeleteCmd,
		accountLockCmd, accountUnlockCmd, accountBalanceCmd)
}

func withClient(fn func(ctx context.Context, c *client.RpcClient) error) {
	c := client.NewClient(client.Config{Endpoint: rpcEndpoint})
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fn(ctx, c); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
