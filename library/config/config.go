package config

import (
	"log"
	"sync"
	"time"

	"github.com/Astemirdum/library-cms/pkg/circuit_breaker"
	"github.com/Astemirdum/library-cms/pkg/kafka"
	"github.com/Astemirdum/library-cms/pkg/logger"
	"github.com/Astemirdum/library-cms/pkg/mailer"
	"github.com/Astemirdum/library-cms/pkg/notify"
	"github.com/Astemirdum/library-cms/pkg/postgres"
	"github.com/Astemirdum/library-cms/pkg/storage"
	"github.com/kelseyhightower/envconfig"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"LIBRARY_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"LIBRARY_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration `yaml:"writeTimeout" envconfig:"HTTP_WRITE" default:"10s"`
}

type Cache struct {
	// PublicBookTTL bounds how long a localized book detail is served from memory.
	PublicBookTTL time.Duration `yaml:"publicBookTTL" envconfig:"CACHE_PUBLIC_BOOK_TTL" default:"1m"`
	KPITTL        time.Duration `yaml:"kpiTTL" envconfig:"CACHE_KPI_TTL" default:"30s"`
}

type Config struct {
	Server         HTTPServer             `yaml:"server"`
	Database       postgres.DB            `yaml:"db"`
	Kafka          kafka.Config           `yaml:"kafka"`
	SMTP           mailer.Config          `yaml:"smtp"`
	CircuitBreaker circuit_breaker.Config `yaml:"circuitBreaker"`
	Storage        storage.Config         `yaml:"storage"`
	Notify         notify.Config          `yaml:"notify"`
	Cache          Cache                  `yaml:"cache"`
	Log            logger.Log             `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment. Options are applied on top of it.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var err error
		cfg, err = load(ops...)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
	})

	return cfg
}

func load(ops ...Option) (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, err
	}
	for _, op := range ops {
		op(&config)
	}
	return &config, nil
}
