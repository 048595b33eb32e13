package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testMode     atomic.Bool
	testModeOnce sync.Once
)

// InTestMode reports whether the binaries should return before opening
// listeners or connecting to Redis.
func InTestMode() bool {
	testModeOnce.Do(RefreshTestMode)
	return testMode.Load()
}

// RefreshTestMode re-reads ODYSSEY_TEST_MODE.
func RefreshTestMode() {
	testMode.Store(os.Getenv(testModeEnv) == "1")
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Serve runs srv until ctx is cancelled and then drains it for at most grace.
// A listener failure is returned immediately.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger, grace time.Duration) error {
	if grace <= 0 {
		grace = 10 * time.Second
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
