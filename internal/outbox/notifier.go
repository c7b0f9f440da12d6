package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NordCoder/Quill/internal/domain/notification"
	"github.com/NordCoder/Quill/internal/domain/outbox"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var _ notification.Notifier = (*Notifier)(nil)

// Notifier records verification requests in the outbox; the Runner delivers them.
type Notifier struct {
	repo   outbox.Repository
	clk    func() time.Time
	newKey func() string
}

func NewNotifier(repo outbox.Repository) *Notifier {
	return &Notifier{
		repo:   repo,
		clk:    func() time.Time { return time.Now().UTC() },
		newKey: uuid.NewString,
	}
}

func (n *Notifier) SendVerification(ctx context.Context, email, link string) error {
	data, err := json.Marshal(notification.Verification{Email: email, Link: link, RequestedAt: n.clk()})
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}

	tc := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, tc)

	msg := outbox.Message{
		IdempotencyKey: n.newKey(),
		Kind:           outbox.KindVerificationRequested,
		Data:           data,
		Status:         outbox.StatusCreated,
		Traceparent:    tc.Get("traceparent"),
		Tracestate:     tc.Get("tracestate"),
		Baggage:        tc.Get("baggage"),
	}
	if err := n.repo.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue verification: %w", err)
	}
	return nil
}
