package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	"github.com/kisa-team/gonka-wallet/bridge"
	"github.com/kisa-team/gonka-wallet/wallet"
	"github.com/spf13/cobra"
)

const (
	relayDialAttempts = 5
	relayDialDelay    = 2 * time.Second
)

func newBridgeCmd() *cobra.Command {
	var relayURL string
	bridgeCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Answer signing requests from connected applications through a relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *wallet.App) error {
				url := relayURL
				if url == "" {
					url = app.Config.RelayURL
				}
				if url == "" {
					return errors.New("no relay url configured")
				}

				transport, err := bridge.DialWebsocket(ctx, url, relayDialAttempts, relayDialDelay, app.Logger)
				if err != nil {
					return err
				}
				defer transport.Close()

				b, err := app.NewBridge(transport)
				if err != nil {
					return err
				}
				registerPromptHandlers(b, app)

				fmt.Fprintln(os.Stderr, "Waiting for requests, interrupt to stop.")
				err = b.Serve(ctx, transport)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}
	bridgeCmd.Flags().StringVar(&relayURL, "relay-url", "", "relay to connect to, defaults to the configured one")
	return bridgeCmd
}

// registerPromptHandlers asks on the terminal before answering any request.
func registerPromptHandlers(b *bridge.Bridge, app *wallet.App) {
	b.SetSessionProposalHandler(bridge.SessionProposalHandlerFunc(func(ctx context.Context, proposal *bridge.SessionProposal) {
		address, err := app.Session.Address()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Session proposal refused: no wallet is loaded.")
			_ = proposal.Reject(ctx)
			return
		}

		question := fmt.Sprintf("Connect %s (%s) on %v?", proposal.Proposer.Name, proposal.Proposer.URL, proposal.Namespace.Chains)
		if !confirm(question) {
			_ = proposal.Reject(ctx)
			return
		}
		if err := proposal.Approve(ctx, address); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to approve session: %s\n", err)
		}
	}))

	b.SetSignDirectHandler(bridge.SignDirectHandlerFunc(func(ctx context.Context, request *bridge.SignDirectRequest) {
		messages := describeDirect(app, request)
		fmt.Fprintf(os.Stderr, "Sign request on %s for %s:\n%s", request.SignDoc.ChainId, request.SignerAddress, messages)
		if !confirm("Sign?") {
			_ = request.Reject(ctx)
			return
		}
		if err := request.Approve(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Signing failed: %s\n", err)
		}
	}))

	b.SetSignAminoHandler(bridge.SignAminoHandlerFunc(func(ctx context.Context, request *bridge.SignAminoRequest) {
		if request.IsADR36() {
			fmt.Fprintf(os.Stderr, "Request to sign a message as %s\n", request.SignerAddress)
		} else {
			fmt.Fprintf(os.Stderr, "Legacy sign request on %s for %s with %d messages, memo %q\n", request.SignDoc.ChainID, request.SignerAddress, len(request.SignDoc.Msgs), request.SignDoc.Memo)
		}
		if !confirm("Sign?") {
			_ = request.Reject(ctx)
			return
		}
		if err := request.Approve(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Signing failed: %s\n", err)
		}
	}))

	b.SetSessionEndHandler(bridge.SessionEndHandlerFunc(func(_ context.Context, end bridge.SessionEnd) {
		if end.Expired {
			fmt.Fprintf(os.Stderr, "Session %s expired\n", end.Topic)
			return
		}
		fmt.Fprintf(os.Stderr, "Session %s closed by peer\n", end.Topic)
	}))
}

// describeDirect lists the messages of a direct sign doc, one type URL per line.
func describeDirect(app *wallet.App, request *bridge.SignDirectRequest) string {
	var body txtypes.TxBody
	if err := app.Encoding.Codec.Unmarshal(request.SignDoc.BodyBytes, &body); err != nil {
		return "  (unreadable body)\n"
	}

	var out strings.Builder
	for _, msg := range body.Messages {
		fmt.Fprintf(&out, "  %s\n", msg.TypeUrl)
	}
	if body.Memo != "" {
		fmt.Fprintf(&out, "  memo %q\n", body.Memo)
	}
	return out.String()
}
