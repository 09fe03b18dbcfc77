package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/kisa-team/gonka-wallet/cosmos/lifecycle"
	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/wallet"
	"github.com/spf13/cobra"
)

// txFlags are shared by every command that signs a transaction.
type txFlags struct {
	memo     string
	gasLimit uint64
	gasPrice string
	yes      bool
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.memo, "memo", "", "transaction memo")
	cmd.Flags().Uint64Var(&f.gasLimit, "gas-limit", 0, "override the default gas limit")
	cmd.Flags().StringVar(&f.gasPrice, "gas-price", "", "override the default gas price, ex. 0.1ngonka")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "sign without asking for confirmation")
}

func (f *txFlags) shared() lifecycle.Shared {
	return lifecycle.Shared{
		MemoText: f.memo,
		Gas: tx.GasOverrides{
			GasLimit: f.gasLimit,
			GasPrice: f.gasPrice,
		},
	}
}

// printTransitions reports progress on stderr.
var printTransitions = lifecycle.StatusObserverFunc(func(transition lifecycle.Transition) {
	switch transition.To {
	case lifecycle.StatusPending:
		fmt.Fprintf(os.Stderr, "Broadcast %s, waiting for confirmation...\n", transition.TransactionHash)
	case lifecycle.StatusSuccess, lifecycle.StatusError:
	default:
		fmt.Fprintf(os.Stderr, "%s...\n", transition.To)
	}
})

// execute shows the fee, asks for confirmation and runs op.
func execute(cmd *cobra.Command, flags *txFlags, describe func(app *wallet.App) string, build func(app *wallet.App) lifecycle.Operation) error {
	return runWithApp(cmd, func(ctx context.Context, app *wallet.App) error {
		if _, ok := app.Session.Active(); !ok {
			return wallet.ErrNoActiveAccount
		}

		op := build(app)
		fee, err := op.FeePolicy().Resolve(op.Overrides())
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%s\nFee: %s GNK (gas limit %d)\n", describe(app), fee.DisplayAmount(), fee.GasLimit)
		if !flags.yes && !confirm("Sign and broadcast?") {
			return errors.New("cancelled")
		}

		result := app.Execute(ctx, op, printTransitions)
		if result.Status != lifecycle.StatusSuccess {
			if result.TransactionHash != "" {
				return fmt.Errorf("transaction %s failed: %s", result.TransactionHash, result.Error)
			}
			return errors.New(result.Error)
		}

		fmt.Fprintln(os.Stdout, result.TransactionHash)
		return nil
	})
}

func newSendCmd() *cobra.Command {
	flags := &txFlags{}
	sendCmd := &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send GNK to another account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := lifecycle.Send{Shared: flags.shared(), Recipient: args[0], Amount: args[1]}
			return execute(cmd, flags, func(*wallet.App) string {
				return fmt.Sprintf("Send %s GNK to %s", op.Amount, op.Recipient)
			}, func(*wallet.App) lifecycle.Operation {
				return op
			})
		},
	}
	flags.register(sendCmd)
	return sendCmd
}

func newDelegateCmd() *cobra.Command {
	flags := &txFlags{}
	delegateCmd := &cobra.Command{
		Use:   "delegate <validator> <amount>",
		Short: "Delegate GNK to a validator",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := lifecycle.Delegate{Shared: flags.shared(), Validator: args[0], Amount: args[1]}
			return execute(cmd, flags, func(*wallet.App) string {
				return fmt.Sprintf("Delegate %s GNK to %s", op.Amount, op.Validator)
			}, func(*wallet.App) lifecycle.Operation {
				return op
			})
		},
	}
	flags.register(delegateCmd)
	return delegateCmd
}

func newVoteCmd() *cobra.Command {
	flags := &txFlags{}
	voteCmd := &cobra.Command{
		Use:   "vote <proposal-id> <yes|no|abstain|no_with_veto>",
		Short: "Vote on a governance proposal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			proposalID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %s", tx.ErrInvalidProposal, args[0])
			}

			op := lifecycle.Vote{Shared: flags.shared(), ProposalID: proposalID, Option: tx.VoteOption(args[1])}
			return execute(cmd, flags, func(*wallet.App) string {
				return fmt.Sprintf("Vote %s on proposal %d", op.Option, op.ProposalID)
			}, func(*wallet.App) lifecycle.Operation {
				return op
			})
		},
	}
	flags.register(voteCmd)
	return voteCmd
}

func newGrantCmd() *cobra.Command {
	grantCmd := &cobra.Command{
		Use:   "grant",
		Short: "Authorize another account to act for this one",
	}
	grantCmd.AddCommand(
		newGrantSubcommand("mlops", "Authorize an ML operational key", func(shared lifecycle.Shared, grantee string, days int) lifecycle.Operation {
			return lifecycle.GrantMLOps{Shared: shared, Grantee: grantee, ExpirationDays: days}
		}),
		newGrantSubcommand("send", "Authorize another account to send tokens", func(shared lifecycle.Shared, grantee string, days int) lifecycle.Operation {
			return lifecycle.GrantSendTokens{Shared: shared, Grantee: grantee, ExpirationDays: days}
		}),
	)
	return grantCmd
}

func newGrantSubcommand(use, short string, build func(shared lifecycle.Shared, grantee string, days int) lifecycle.Operation) *cobra.Command {
	flags := &txFlags{}
	var days int
	subcommand := &cobra.Command{
		Use:   use + " <grantee>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grantee := args[0]
			expirationDays := func(app *wallet.App) int {
				if days > 0 {
					return days
				}
				return app.Config.GrantExpirationDays
			}

			return execute(cmd, flags, func(app *wallet.App) string {
				return fmt.Sprintf("Grant %s to %s for %d days", use, grantee, expirationDays(app))
			}, func(app *wallet.App) lifecycle.Operation {
				return build(flags.shared(), grantee, expirationDays(app))
			})
		},
	}
	flags.register(subcommand)
	subcommand.Flags().IntVar(&days, "days", 0, "lifetime of the grant in days, defaults to the configured value")
	return subcommand
}
