package kafka

import (
	"context"

	domainkafka "github.com/NordCoder/Quill/internal/domain/kafka"
	"github.com/NordCoder/Quill/internal/domain/notification"
)

const TopicVerification = "quill.verification"

type publisher interface {
	PublishJSON(ctx context.Context, key []byte, v any) error
}

type VerificationEventsKafka struct {
	p publisher
}

func NewVerificationEventsKafka(p *Producer) *VerificationEventsKafka {
	return &VerificationEventsKafka{p: p}
}

var _ domainkafka.VerificationEvents = (*VerificationEventsKafka)(nil)

// PublishVerificationRequested keys by address so links for one inbox stay ordered.
func (e *VerificationEventsKafka) PublishVerificationRequested(ctx context.Context, v notification.Verification) error {
	return e.p.PublishJSON(ctx, []byte(v.Email), v)
}
