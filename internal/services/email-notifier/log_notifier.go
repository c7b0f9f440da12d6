package notifier

import (
	"context"

	"github.com/NordCoder/Quill/internal/domain/notification"
	"github.com/NordCoder/Quill/internal/obs"

	"go.uber.org/zap"
)

var _ notification.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the verification link to the log instead of sending it.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.With(zap.String("component", "notifier.log"))}
}

func (n *LogNotifier) SendVerification(ctx context.Context, email, link string) error {
	obs.WithTrace(ctx, n.log).Info("verification link", zap.String("email", email), zap.String("link", link))
	return nil
}
