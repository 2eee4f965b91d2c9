package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ShutdownHook releases a resource once the server has drained
type ShutdownHook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// GracefulShutdown runs a server until its context is cancelled, then drains
// in-flight requests and runs the registered hooks in registration order.
type GracefulShutdown struct {
	server  *Server
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.Mutex
	hooks []ShutdownHook
}

// NewGracefulShutdown creates a shutdown handler for server
func NewGracefulShutdown(server *Server, timeout time.Duration, logger *zap.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GracefulShutdown{server: server, timeout: timeout, logger: logger}
}

// RegisterHook adds a hook to run after the server has stopped
func (gs *GracefulShutdown) RegisterHook(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, ShutdownHook{Name: name, Fn: fn})
}

// Run serves until ctx is done or the server fails. Cancel ctx (for example
// with signal.NotifyContext) to trigger a graceful shutdown.
func (gs *GracefulShutdown) Run(ctx context.Context) error {
	if err := gs.server.Listen(); err != nil {
		return err
	}
	gs.logger.Info("server listening", zap.String("addr", gs.server.Addr()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- gs.server.Serve()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			gs.runHooks(context.Background())
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	gs.logger.Info("shutting down", zap.Duration("timeout", gs.timeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	var shutdownErr error
	if err := gs.server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		gs.logger.Error("server shutdown failed", zap.Error(err))
	}
	<-errCh

	gs.runHooks(shutdownCtx)
	if shutdownErr == nil {
		gs.logger.Info("shutdown complete")
	}
	return shutdownErr
}

// runHooks runs every hook, logging failures without stopping
func (gs *GracefulShutdown) runHooks(ctx context.Context) {
	gs.mu.Lock()
	hooks := make([]ShutdownHook, len(gs.hooks))
	copy(hooks, gs.hooks)
	gs.mu.Unlock()

	for _, hook := range hooks {
		if err := hook.Fn(ctx); err != nil {
			gs.logger.Warn("shutdown hook failed", zap.String("hook", hook.Name), zap.Error(err))
		}
	}
}
