package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kisa-team/gonka-wallet/config"
	"github.com/kisa-team/gonka-wallet/log"
	"github.com/kisa-team/gonka-wallet/wallet"
	"github.com/spf13/cobra"
)

const (
	configFlag   = "config"
	metricsFlag  = "metrics"
	logLevelFlag = "log-level"

	passphraseEnv = "GONKA_PASSPHRASE"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gonka-wallet",
		Short:         "Sign and broadcast transactions on the gonka chain",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String(configFlag, config.DefaultConfigFile, "path to the configuration file")
	rootCmd.PersistentFlags().String(logLevelFlag, "", "override the configured log level")
	rootCmd.PersistentFlags().Bool(metricsFlag, false, "print metrics to stderr when the command finishes")

	rootCmd.AddCommand(
		newInitConfigCmd(),
		newSeedCmd(),
		newAddressCmd(),
		newBalanceCmd(),
		newSendCmd(),
		newDelegateCmd(),
		newVoteCmd(),
		newGrantCmd(),
		newBridgeCmd(),
	)
	return rootCmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file, unless one exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString(configFlag)
			return config.WriteDefault(config.ExpandHomeDir(file), log.NewLogger("info"))
		},
	}
}

// runWithApp loads configuration, opens the keystore and builds the app for the duration of fn.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, app *wallet.App) error) error {
	file, _ := cmd.Flags().GetString(configFlag)
	cfg, err := config.Load(file)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString(logLevelFlag); level != "" {
		cfg.LogLevel = level
	}
	logger := log.NewLogger(cfg.LogLevel)

	passphrase, err := readPassphrase()
	if err != nil {
		return err
	}
	store, err := wallet.OpenBadgerStore(cfg.KeystoreDir, passphrase, wallet.DefaultKDFParams())
	if err != nil {
		return err
	}
	defer store.Close()

	app, err := wallet.NewApp(cfg, store, nil, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Session.Load(); err != nil {
		if errors.Is(err, wallet.ErrWrongPassphrase) {
			return fmt.Errorf("unable to unlock keystore: %w", err)
		}
		return err
	}

	runErr := fn(cmd.Context(), app)

	if dump, _ := cmd.Flags().GetBool(metricsFlag); dump {
		if err := app.Metrics.Dump(os.Stderr); err != nil {
			logger.Warn("failed to print metrics", "error", err.Error())
		}
	}
	return runErr
}

func readPassphrase() ([]byte, error) {
	if passphrase := os.Getenv(passphraseEnv); passphrase != "" {
		return []byte(passphrase), nil
	}
	passphrase, err := readSecret("Keystore passphrase: ")
	if err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, errors.New("a keystore passphrase is required")
	}
	return passphrase, nil
}
