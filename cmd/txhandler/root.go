package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	txhandler "github.com/branched-services/go-txhandler"
)

// NewRootCmd builds the txhandler command tree. Run without a subcommand it
// connects, logs the sending address and balance, and exits.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "txhandler",
		Short: "Submit transactions and deploy contracts through an Ethereum node",
		Long: `txhandler connects to an Ethereum node over JSON-RPC, resolves the sending
account and submits transactions on its behalf.

The sender is, in order of precedence, the --account address, the address of
the key in --private-key, or the first account the node has unlocked.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, func(ctx context.Context, h *txhandler.Handler) error {
				return nil
			})
		},
	}
	addFlags(rootCmd)

	rootCmd.AddCommand(
		newNonceCmd(),
		newReceiptCmd(),
		newDeployCmd(),
		newRunCmd(),
	)
	return rootCmd
}

// withHandler builds a handler from the command's configuration, runs fn
// and closes the handler.
func withHandler(cmd *cobra.Command, fn func(ctx context.Context, h *txhandler.Handler) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	opts, err := cfg.Options(logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	h, err := txhandler.New(ctx, opts...)
	if err != nil {
		return err
	}
	defer h.Close()

	return fn(ctx, h)
}

func newNonceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nonce",
		Short: "Print the sender's pending nonce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, func(ctx context.Context, h *txhandler.Handler) error {
				nonce, err := h.GetNonce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), nonce)
				return nil
			})
		},
	}
}

func newReceiptCmd() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "receipt <hash>",
		Short: "Log the receipt of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := txhandler.Strip0x(args[0])
			if len(raw) != 2*common.HashLength {
				return fmt.Errorf("invalid transaction hash %q", args[0])
			}
			hash := common.HexToHash(raw)

			return withHandler(cmd, func(ctx context.Context, h *txhandler.Handler) error {
				r, err := h.GetTransactionReceipt(ctx, hash)
				if wait && err == nil && r == nil {
					r, err = h.WaitForReceipt(ctx, hash)
				}
				if err != nil {
					return err
				}
				if r == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "transaction %s is not mined\n", hash.Hex())
					return nil
				}
				h.LogTransactionReceipt(r)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the transaction is mined")
	return cmd
}

func newDeployCmd() *cobra.Command {
	var (
		name  string
		value string
		refs  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "deploy <artifact> [args...]",
		Short: "Deploy a compiled contract",
		Long: `Deploy the contract in a forge, hardhat or solc JSON artifact.

Constructor arguments are strings; JSON arrays are accepted for array
parameters. Arguments naming a --ref are replaced by its value.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifact, err := txhandler.LoadArtifact(args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = artifact.Name
			}
			ctorArgs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			amount, err := txhandler.ParseWei(value)
			if err != nil {
				return err
			}

			return withHandler(cmd, func(ctx context.Context, h *txhandler.Handler) error {
				for k, v := range refs {
					h.SetReference(k, v)
				}
				contract, _, err := h.DeployWithValue(ctx, name, artifact, amount, ctorArgs...)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), contract.Address().Hex())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "reference name for the contract (default artifact name)")
	cmd.Flags().StringVar(&value, "value", "", "wei sent with the deployment")
	cmd.Flags().StringToStringVar(&refs, "ref", nil, "reference table entries, name=value")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Run a JSON deployment script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := txhandler.LoadScript(args[0])
			if err != nil {
				return err
			}
			return withHandler(cmd, func(ctx context.Context, h *txhandler.Handler) error {
				if err := h.Run(ctx, script); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "total gas used: %d\n", h.TotalGas())
				return nil
			})
		},
	}
}
