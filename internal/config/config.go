package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string   `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort       string   `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort     string   `yaml:"socket-port" env:"SOCKET_PORT" env-default:"8080"`
	AllowedOrigins []string `yaml:"allowed-origins" env:"ALLOWED_ORIGINS" env-separator:","`
	Redis          Redis    `yaml:"redis"`
	Game           Game     `yaml:"game"`
	Mirror         Mirror   `yaml:"mirror"`
}

type Redis struct {
	Enabled   bool          `yaml:"enabled" env:"REDIS_ENABLED"`
	Host      string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port      string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	RecordTTL time.Duration `yaml:"record-ttl" env:"REDIS_RECORD_TTL" env-default:"1h"`
}

type Game struct {
	MaxNameLength         int     `yaml:"max-name-length" env-default:"20"`
	MaxChatLength         int     `yaml:"max-chat-length" env-default:"200"`
	ChatRate              float64 `yaml:"chat-rate" env-default:"2"`
	ChatBurst             int     `yaml:"chat-burst" env-default:"5"`
	RequeueOnOpponentLeft bool    `yaml:"requeue-on-opponent-left" env:"REQUEUE_ON_OPPONENT_LEFT" env-default:"false"`
}

type Mirror struct {
	QueueSize int `yaml:"queue-size" env-default:"1024"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
