package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kisa-team/gonka-wallet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Default().Error("command failed", "error", err.Error())
		stop()
		os.Exit(1)
	}
}
