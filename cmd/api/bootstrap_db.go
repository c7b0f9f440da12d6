package main

import (
	"context"

	config "github.com/NordCoder/Quill/internal/config/api"
	pg "github.com/NordCoder/Quill/internal/repository/postgres"

	"go.uber.org/zap"
)

type repos struct {
	users  *pg.UserRepo
	posts  *pg.PostRepo
	outbox *pg.OutboxRepo
}

func initDB(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pg.DB, repos, error) {
	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		return nil, repos{}, err
	}
	logger.Info("db connected", zap.Int32("max_conns", db.Pool.Config().MaxConns))
	return db, repos{
		users:  pg.NewUserRepo(db),
		posts:  pg.NewPostRepo(db),
		outbox: pg.NewOutboxRepo(db),
	}, nil
}
