package kafka

import (
	"context"

	"github.com/NordCoder/Quill/internal/domain/notification"
)

type VerificationEvents interface {
	PublishVerificationRequested(ctx context.Context, v notification.Verification) error
}
