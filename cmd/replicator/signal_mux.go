package main

import (
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// SignalMux serializes OS signal delivery through a single handler so
// main doesn't race a concurrent Shutdown against a second SIGTERM.
type SignalMux struct {
	sigChan chan os.Signal
	handler func(os.Signal) bool
}

func NewSignalMux(handler func(os.Signal) bool) *SignalMux {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

	if handler == nil {
		log.Panic("signal handler is nil")
	}

	return &SignalMux{
		sigChan: sigChan,
		handler: handler,
	}
}

func (s *SignalMux) Serve() {
	for sig := range s.sigChan {
		log.Infof("received signal: %s", sig.String())
		if s.handler(sig) {
			return
		}
	}
}
