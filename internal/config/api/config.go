package api_config

import (
	"time"

	"github.com/NordCoder/Quill/internal/obs"
	pg "github.com/NordCoder/Quill/internal/repository/postgres"
	notifier "github.com/NordCoder/Quill/internal/services/email-notifier"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr          string        `mapstructure:"http_addr"`
	GRPCAddr          string        `mapstructure:"grpc_addr"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout   time.Duration `mapstructure:"graceful_timeout"`
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

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Auth struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	JWTAlgorithm    string        `mapstructure:"jwt_algorithm"`
	BcryptCost      int           `mapstructure:"bcrypt_cost"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	VerificationTTL time.Duration `mapstructure:"verification_ttl"`
	VerifyBaseURL   string        `mapstructure:"verify_base_url"`
}

const (
	NotifierOutbox = "outbox"
	NotifierSMTP   = "smtp"
	NotifierLog    = "log"
)

type Notifier struct {
	Mode    string                `mapstructure:"mode"`
	Timeout time.Duration         `mapstructure:"timeout"`
	SMTP    notifier.MailerConfig `mapstructure:"smtp"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	WaitTime      time.Duration `mapstructure:"wait_time"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type KafkaOut struct {
	Brokers    []string `mapstructure:"brokers"`
	Topic      string   `mapstructure:"topic"`
	Partitions int      `mapstructure:"partitions"`
}

type Config struct {
	App      App       `mapstructure:"app"`
	Server   Server    `mapstructure:"server"`
	DB       pg.Config `mapstructure:"db"`
	OTEL     OTEL      `mapstructure:"otel"`
	Log      Log       `mapstructure:"log"`
	Auth     Auth      `mapstructure:"auth"`
	Notifier Notifier  `mapstructure:"notifier"`
	Outbox   Outbox    `mapstructure:"outbox"`
	Kafka    KafkaOut  `mapstructure:"kafka_out"`
}

func (c *Config) LoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   c.Log.Level,
		Pretty:  c.Log.Pretty,
		Service: c.App.Name,
		Env:     c.App.Env,
		Version: c.App.Version,
	}
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
