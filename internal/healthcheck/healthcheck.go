package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// NormalizeListen accepts a bare port ("3000"), a ":port", or a full
// "host:port" address. Empty input means the server is disabled.
func NormalizeListen(listen string) string {
	listen = strings.TrimSpace(listen)
	if listen == "" {
		return ""
	}
	if _, err := strconv.Atoi(listen); err == nil {
		return ":" + listen
	}
	return listen
}

// StartServer binds a liveness endpoint on listen and serves until Shutdown.
// The root path answers 200 so PaaS probes keep the process alive.
func StartServer(ctx context.Context, logger *slog.Logger, listen, component string) (*http.Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok: " + component))
	})

	srv := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("health_server_error", "addr", listen, "error", serveErr.Error())
		}
	}()
	logger.Info("health_server_start", "addr", ln.Addr().String(), "component", component)
	return srv, nil
}
