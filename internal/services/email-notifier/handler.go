package notifier

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/NordCoder/Quill/internal/domain/notification"
	"github.com/NordCoder/Quill/internal/obs"
	"github.com/NordCoder/Quill/internal/obs/retry"
	kafkax "github.com/NordCoder/Quill/internal/repository/kafka"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	mConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_messages_consumed_total",
		Help: "Verification requests consumed.",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "email_notifier_emails_sent_total",
		Help: "Emails sent.",
	})
	mErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_notifier_errors_total",
		Help: "Dropped or failed verification requests.",
	}, []string{"reason"})
)

type Handler struct {
	Out    notification.EmailSender
	Policy retry.Policy
	Log    *zap.Logger
}

// HandleVerification sends the link. Undeliverable payloads are reported as
// poison so the consumer skips them; SMTP failures are retried.
func (h *Handler) HandleVerification(ctx context.Context, v notification.Verification) error {
	mConsumed.Inc()
	log := obs.WithTrace(ctx, h.Log)

	if _, err := mail.ParseAddress(v.Email); err != nil || v.Link == "" {
		mErrors.WithLabelValues("invalid").Inc()
		log.Warn("verification: invalid payload", zap.String("email", v.Email), zap.Bool("has_link", v.Link != ""))
		return fmt.Errorf("%w: invalid verification payload", kafkax.ErrPoison)
	}

	subject, body := VerificationEmail(v.Link)
	if err := retry.Do(ctx, func() error { return h.Out.Send(ctx, v.Email, subject, body) }, h.Policy); err != nil {
		mErrors.WithLabelValues("send").Inc()
		return fmt.Errorf("send verification email: %w", err)
	}
	mSent.Inc()
	log.Info("verification email sent", zap.String("email", v.Email))
	return nil
}
