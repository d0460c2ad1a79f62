package listener

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/middleware"

	"github.com/stephnangue/gatehouse/logger"
)

// ApiListener serves an HTTP handler with the standard middleware
// stack and a graceful shutdown path.
type ApiListener struct {
	logger      logger.Logger
	server      *http.Server
	stopped     atomic.Bool
	tlsEnabled  bool
	tlsCertFile string
	tlsKeyFile  string
}

type ApiListenerConfig struct {
	Logger      logger.Logger
	Address     string
	TLSCertFile string
	TLSKeyFile  string
	TLSEnabled  bool
}

// NewApiListener wires the handler behind RealIP/RequestID/Recoverer
// middleware and configures the server timeouts.
func NewApiListener(cfg ApiListenerConfig, httpHandler http.Handler) *ApiListener {
	var handler http.Handler = httpHandler
	handler = middleware.RealIP(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recoverer(handler)

	server := &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return &ApiListener{
		logger:      cfg.Logger,
		server:      server,
		tlsEnabled:  cfg.TLSEnabled,
		tlsCertFile: cfg.TLSCertFile,
		tlsKeyFile:  cfg.TLSKeyFile,
	}
}

func (l *ApiListener) Addr() string {
	return l.server.Addr
}

// Start begins serving and blocks until ctx is cancelled or the server
// fails.
func (l *ApiListener) Start(ctx context.Context) error {
	l.logger.Info("starting HTTP server", logger.String("address", l.server.Addr))

	errChan := make(chan error, 1)
	go func() {
		var err error
		if l.tlsEnabled {
			err = l.server.ListenAndServeTLS(l.tlsCertFile, l.tlsKeyFile)
		} else {
			err = l.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		l.logger.Info("shutdown signal received")
		return l.Stop()
	case err := <-errChan:
		l.logger.Error("HTTP server error", logger.Err(err))
		return err
	}
}

// Stop shuts the server down gracefully, waiting up to 30 seconds for
// in-flight requests.
func (l *ApiListener) Stop() error {
	if !l.stopped.CompareAndSwap(false, true) {
		return nil
	}

	l.logger.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := l.server.Shutdown(ctx); err != nil {
		l.logger.Error("error when shutting down the http server", logger.Err(err))
		return err
	}

	l.logger.Info("HTTP server stopped gracefully")
	return nil
}
