package email_notifier_config

import (
	"time"

	"github.com/NordCoder/Quill/internal/obs"
	kafkax "github.com/NordCoder/Quill/internal/repository/kafka"
	notifier "github.com/NordCoder/Quill/internal/services/email-notifier"
)

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
	Partitions    int      `mapstructure:"partitions"`
}

func (k KafkaIn) AsConsumerConfig() kafkax.ConsumerConfig {
	return kafkax.ConsumerConfig{
		Brokers:       k.Brokers,
		GroupID:       k.GroupID,
		Topic:         k.Topic,
		FromBeginning: k.FromBeginning,
	}
}

type Server struct {
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc OTEL) AsOTELConfig() obs.OTELConfig {
	return obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Retry struct {
	Attempts int `mapstructure:"attempts"`
}

type Config struct {
	In     KafkaIn               `mapstructure:"kafka_in"`
	SMTP   notifier.MailerConfig `mapstructure:"smtp"`
	Server Server                `mapstructure:"server"`
	Log    Log                   `mapstructure:"log"`
	OTEL   OTEL                  `mapstructure:"otel"`
	Retry  Retry                 `mapstructure:"retry"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   c.Log.Level,
		Pretty:  c.Log.Pretty,
		Service: "quill-email-notifier",
	}
}
