package watcher

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"dev.hon.one/argon/util"
)

// Start - Run the watcher in the background until shutdown.
func Start(waitGroup *sync.WaitGroup, shutdown *util.ShutdownChannelDistributor, watcher *Watcher) {
	// Setup shutdown signal and waitgroup
	ctx, cancel, ok := shutdown.ListenContext(context.Background())
	if !ok {
		return
	}
	waitGroup.Add(1)

	go func() {
		defer waitGroup.Done()
		defer log.Info("Watcher stopped")
		defer cancel()

		watcher.Run(ctx)
	}()

	log.WithFields(log.Fields{
		"device":   watcher.config.Source,
		"interval": watcher.config.Interval,
	}).Info("Watcher started")
}
