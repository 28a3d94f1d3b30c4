package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type config struct {
	Production       bool          `env:"PRODUCTION" envDefault:"false"`
	Port             string        `env:"PORT" envDefault:"8080"`
	DataDir          string        `env:"DATA_DIR" envDefault:"data"`
	Secret           string        `env:"SECRET,required"`
	FlushDelay       time.Duration `env:"FLUSH_DELAY" envDefault:"1s"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL" envDefault:"60s"`
	ReminderLead     time.Duration `env:"REMINDER_LEAD" envDefault:"15m"`
	WebhookTimeout   time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	TokenLength      int           `env:"TOKEN_LENGTH" envDefault:"32"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"1000"`
	StreamBuffer     int           `env:"STREAM_BUFFER" envDefault:"16"`
}

var conf config

func init() {
	if err := env.Parse(&conf); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}

func Production() bool {
	return conf.Production
}

func Port() string {
	return conf.Port
}

func DataDir() string {
	return conf.DataDir
}

func Secret() string {
	return conf.Secret
}

func FlushDelay() time.Duration {
	return conf.FlushDelay
}

func ReminderInterval() time.Duration {
	return conf.ReminderInterval
}

func ReminderLead() time.Duration {
	return conf.ReminderLead
}

func WebhookTimeout() time.Duration {
	return conf.WebhookTimeout
}

func TokenLength() int {
	return conf.TokenLength
}

func HistoryLimit() int {
	return conf.HistoryLimit
}

func StreamBuffer() int {
	return conf.StreamBuffer
}
