package notifier

import (
	"context"

	"github.com/NordCoder/Quill/internal/domain/notification"
	kafkax "github.com/NordCoder/Quill/internal/repository/kafka"

	"go.uber.org/zap"
)

type subscriber interface {
	Consume(ctx context.Context, h kafkax.Handler) error
}

type Controller struct {
	Log *zap.Logger
	Sub subscriber
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	c.Log.Info("controller starting")
	return c.Sub.Consume(ctx, kafkax.JSONHandler(func(ctx context.Context, _ []byte, v notification.Verification) error {
		return c.UC.HandleVerification(ctx, v)
	}))
}
