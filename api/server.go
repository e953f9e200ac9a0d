package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	server *http.Server
	log    *zap.Logger
}

func NewServer(cfg *config.Configuration, logger *zap.Logger, services *Services) *Server {
	bind := net.JoinHostPort(cfg.Server.Address, strconv.Itoa(cfg.Server.Port))
	srv := http.Server{
		Addr:              bind,
		Handler:           compose(logger.Named("api"), cfg, services),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{
		server: &srv,
		log:    logger,
	}
}

// Handler exposes the composed router
func (srv *Server) Handler() http.Handler {
	return srv.server.Handler
}

// Run serves until ctx is done and shuts down gracefully afterwards
func (srv *Server) Run(ctx context.Context) error {
	srv.log.Info("starting server")
	failed := make(chan error, 1)
	go func() {
		failed <- srv.server.ListenAndServe()
	}()
	srv.log.Info("listening", zap.String("addr", srv.server.Addr))

	select {
	case err := <-failed:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	srv.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.server.Shutdown(shutdownCtx); err != nil {
		srv.log.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	srv.log.Info("graceful shutdown completed")
	return nil
}
