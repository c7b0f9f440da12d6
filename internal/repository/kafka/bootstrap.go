package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the topic exists before the reader joins its group.
func BootstrapConsumer(ctx context.Context, cfg ConsumerConfig, partitions int) *Consumer {
	if err := EnsureTopic(ctx, cfg.Brokers, TopicSpec{
		Name:              cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
		MaxWait:           5 * time.Second,
	}, cfg.Logger); err != nil && cfg.Logger != nil {
		cfg.Logger.Warn("ensure topic failed; relying on auto-creation",
			zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg)
}
