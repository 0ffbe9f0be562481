package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/zishang520/socket.io/v2/socket"
)

// DefaultRelayPath is where the relay mounts the socket.io endpoint.
const DefaultRelayPath = "/socket.io/"

// Relay is a socket.io server that re-broadcasts every event it receives to
// every other connected client. The generator and the simulator services
// meet on it.
type Relay struct {
	io     *socket.Server
	server *http.Server
	logger *slog.Logger
}

// NewRelay builds a relay listening on addr.
func NewRelay(ctx context.Context, addr string) *Relay {
	logger := ctxlog.FromContext(ctx).With("component", "relay")
	io := socket.NewServer(nil, nil)

	io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		clientLogger := logger.With("sid", client.Id())
		clientLogger.Info("Client connected")

		client.OnAny(func(args ...any) {
			if len(args) == 0 {
				return
			}
			event, ok := args[0].(string)
			if !ok {
				return
			}
			clientLogger.Debug("Relaying event", "topic", event)
			if err := client.Broadcast().Emit(event, args[1:]...); err != nil {
				clientLogger.Warn("Relay failed", "topic", event, "error", err)
			}
		})
		client.On("disconnect", func(reason ...any) {
			clientLogger.Info("Client disconnected", "reason", reason)
		})
	})

	mux := http.NewServeMux()
	mux.Handle(DefaultRelayPath, io.ServeHandler(nil))

	return &Relay{
		io:     io,
		logger: logger,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Serve accepts connections on l until ctx is cancelled.
func (r *Relay) Serve(ctx context.Context, l net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("Relay listening", "addr", l.Addr().String())
		errCh <- r.server.Serve(l)
	}()

	select {
	case <-ctx.Done():
		return r.shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	}
}

// ListenAndServe listens on the configured address until ctx is cancelled.
func (r *Relay) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", r.server.Addr)
	if err != nil {
		return fmt.Errorf("relay listen on %s: %w", r.server.Addr, err)
	}
	return r.Serve(ctx, l)
}

func (r *Relay) shutdown() error {
	r.logger.Info("Shutting down relay")
	r.io.Close(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	return nil
}
