package worker

import (
	"context"
	"log/slog"
	"time"
)

// HTTPServer is implemented by api.Server.
type HTTPServer interface {
	Start(addr string) error
	Shutdown(ctx context.Context) error
}

// APIServer runs the HTTP API until ctx is cancelled, then shuts it down
// gracefully.
type APIServer struct {
	Server          HTTPServer
	Addr            string
	ShutdownTimeout time.Duration
}

func (w *APIServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- w.Server.Start(w.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	timeout := w.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	slog.Info("api-server: shutting down")
	return w.Server.Shutdown(sctx)
}
