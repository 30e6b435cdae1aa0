package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/small-frappuccino/guildsettings/pkg/log"
)

// waitForInterrupt blocks until SIGINT, SIGTERM or the cancellation of parent.
func waitForInterrupt(parent context.Context) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.ApplicationLogger().Info("Received interrupt, shutting down")
}
