package main

import (
	"net/http"

	config "github.com/NordCoder/Quill/internal/config/api"
	"github.com/NordCoder/Quill/internal/obs"
	"github.com/NordCoder/Quill/internal/services/api/posts"
	"github.com/NordCoder/Quill/internal/services/api/session"
	"github.com/NordCoder/Quill/internal/services/api/users"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, sessions *session.Usecase, postsUC *posts.Usecase, rp repos, health obs.HealthFunc) *http.Server {
	mux := http.NewServeMux()

	session.NewServer(logger, sessions).Routes(mux)
	users.NewServer(logger, rp.users).Routes(mux)
	posts.NewServer(logger, postsUC, session.RequireAccess(sessions.ParseAccess)).Routes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", obs.HealthHandler(health))

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.InstrumentHTTP(cfg.App.Name, mux, logger),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

func serveHTTP(srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
	return srv.ListenAndServe()
}
