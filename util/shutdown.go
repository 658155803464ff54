package util

import (
	"context"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ShutdownChannelDistributor - For letting multiple listeners receive the internal shutdown signal.
type ShutdownChannelDistributor struct {
	mutex          sync.Mutex
	hasShutdown    bool
	outputChannels []chan<- bool
}

// NewShutdownChannelDistributor - Create a distributor which shuts down when the input channel yields.
// A nil input means the distributor is only shut down through Shutdown.
func NewShutdownChannelDistributor(input <-chan os.Signal) *ShutdownChannelDistributor {
	shutdown := &ShutdownChannelDistributor{}
	if input != nil {
		go func() {
			<-input
			shutdown.Shutdown()
		}()
	}
	return shutdown
}

// AddListener - Add a channel to duplicate input to.
// Return false if the shutdown signal has already been sent.
func (shutdown *ShutdownChannelDistributor) AddListener(output chan<- bool) bool {
	shutdown.mutex.Lock()
	defer shutdown.mutex.Unlock()
	if shutdown.hasShutdown {
		return false
	}
	shutdown.outputChannels = append(shutdown.outputChannels, output)
	return true
}

// Shutdown - Send shutdown signal to all listeners. Later calls do nothing.
func (shutdown *ShutdownChannelDistributor) Shutdown() {
	shutdown.mutex.Lock()
	defer shutdown.mutex.Unlock()
	if shutdown.hasShutdown {
		return
	}
	shutdown.hasShutdown = true
	log.Infof("Sending shutdown signal to %v listeners", len(shutdown.outputChannels))
	for _, output := range shutdown.outputChannels {
		output <- true
	}
}

// ListenContext - Derive a context which is cancelled on shutdown.
// Return false if the shutdown signal has already been sent.
func (shutdown *ShutdownChannelDistributor) ListenContext(parent context.Context) (context.Context, context.CancelFunc, bool) {
	shutdownChannel := make(chan bool, 1)
	if !shutdown.AddListener(shutdownChannel) {
		return nil, nil, false
	}
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-shutdownChannel:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel, true
}
