package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kisa-team/gonka-wallet/cosmos/tx"
	"github.com/kisa-team/gonka-wallet/wallet"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Manage the stored seed phrase",
	}
	seedCmd.AddCommand(
		newSeedGenerateCmd(),
		newSeedImportCmd(),
		newSeedClearCmd(),
	)
	return seedCmd
}

func newSeedGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Create a new 24 word seed phrase and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(_ context.Context, app *wallet.App) error {
				if _, ok := app.Session.Active(); ok && !confirm("A seed phrase is already stored. Replace it?") {
					return nil
				}

				mnemonic, err := app.Session.Generate()
				if err != nil {
					return err
				}
				address, err := app.Session.Address()
				if err != nil {
					return err
				}

				fmt.Fprintln(os.Stderr, "Write down this seed phrase. It is the only way to recover the account.")
				fmt.Fprintln(os.Stdout, mnemonic)
				fmt.Fprintf(os.Stderr, "Address: %s\n", address)
				return nil
			})
		},
	}
}

func newSeedImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Store an existing seed phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(_ context.Context, app *wallet.App) error {
				mnemonic, err := readSecret("Seed phrase: ")
				if err != nil {
					return err
				}
				if err := app.Session.Import(string(mnemonic)); err != nil {
					return err
				}

				address, err := app.Session.Address()
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, address)
				return nil
			})
		},
	}
}

func newSeedClearCmd() *cobra.Command {
	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored seed phrase",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(_ context.Context, app *wallet.App) error {
				if !yes && !confirm("Remove the stored seed phrase? Funds are lost without a backup.") {
					return nil
				}
				return app.Session.Logout()
			})
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return clearCmd
}

func newAddressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the address of the stored account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(_ context.Context, app *wallet.App) error {
				address, err := app.Session.Address()
				if err != nil {
					return err
				}
				fmt.Fprintln(os.Stdout, address)
				return nil
			})
		},
	}
}

func newBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the balance of the stored account in GNK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *wallet.App) error {
				if err := app.Balances.Refresh(ctx); err != nil {
					return err
				}
				amount := app.Balances.Balance().AmountOf(app.Config.FeeDenom)
				fmt.Fprintf(os.Stdout, "%s GNK\n", tx.FormatDisplayAmount(amount))
				return nil
			})
		},
	}
}
