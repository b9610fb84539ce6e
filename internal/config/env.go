package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "RELAY"

// Load reads defaults, an optional YAML file named fileName in the working
// directory, then RELAY_* environment variables. PORT and CLIENT_ORIGIN are
// honored for compatibility with existing deployments.
func Load(fileName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("service.port", "PORT")
	_ = v.BindEnv("transport.allowedOrigins", envPrefix+"_TRANSPORT_ALLOWEDORIGINS", "CLIENT_ORIGIN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if port := v.GetString("service.port"); port != "" {
		cfg.Service.Addr = ":" + port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "chatrelay")
	v.SetDefault("service.env", "development")
	v.SetDefault("service.addr", ":8080")
	v.SetDefault("service.port", "")
	v.SetDefault("service.shutdownTimeout", "10s")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.dialTimeout", "5s")
	v.SetDefault("redis.readTimeout", "3s")
	v.SetDefault("redis.writeTimeout", "3s")
	v.SetDefault("redis.poolSize", 10)
	v.SetDefault("redis.minIdleConns", 2)
	v.SetDefault("redis.pingTimeout", "2s")
	v.SetDefault("redis.presenceKey", "presence:online")

	v.SetDefault("transport.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("transport.readLimit", 512*1024) // 512KB max message size
	v.SetDefault("transport.writeTimeout", "10s")
	v.SetDefault("transport.pongWait", "60s")
	v.SetDefault("transport.pingInterval", "50s")
	v.SetDefault("transport.sendBuffer", 256)

	v.SetDefault("presence.syncInterval", "30s")
	v.SetDefault("presence.ttl", "45s")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("tracer.enabled", false)
	v.SetDefault("tracer.address", "localhost:4317")
	v.SetDefault("tracer.insecure", true)
	v.SetDefault("tracer.sampleRatio", 1.0)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Transport.SendBuffer <= 0 {
		errs = append(errs, errors.New("transport.sendBuffer must be positive"))
	}
	if c.Transport.PingInterval >= c.Transport.PongWait {
		errs = append(errs, errors.New("transport.pingInterval must be shorter than transport.pongWait"))
	}
	if c.Presence.SyncInterval <= 0 {
		errs = append(errs, errors.New("presence.syncInterval must be positive"))
	}
	if c.Presence.TTL < c.Presence.SyncInterval {
		errs = append(errs, errors.New("presence.ttl must not be shorter than presence.syncInterval"))
	}
	return errors.Join(errs...)
}
