package main

import (
	config "github.com/NordCoder/Quill/internal/config/api"
	"github.com/NordCoder/Quill/internal/obs"

	"go.uber.org/zap"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.LoggerConfig())
}
