package config

import "time"

type Config struct {
	Service   *ServiceConfig   `mapstructure:"service"`
	Redis     *RedisConfig     `mapstructure:"redis"`
	Transport *TransportConfig `mapstructure:"transport"`
	Presence  *PresenceConfig  `mapstructure:"presence"`
	Logger    *LoggerConfig    `mapstructure:"logger"`
	Tracer    *TracerConfig    `mapstructure:"tracer"`
}

type ServiceConfig struct {
	Name            string        `mapstructure:"name"`
	Env             string        `mapstructure:"env"`
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// RedisConfig is optional. An empty URL disables the presence mirror.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	DialTimeout  time.Duration `mapstructure:"dialTimeout"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	PoolSize     int           `mapstructure:"poolSize"`
	MinIdleConns int           `mapstructure:"minIdleConns"`
	PingTimeout  time.Duration `mapstructure:"pingTimeout"`
	PresenceKey  string        `mapstructure:"presenceKey"`
}

type TransportConfig struct {
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	ReadLimit      int64         `mapstructure:"readLimit"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	PongWait       time.Duration `mapstructure:"pongWait"`
	PingInterval   time.Duration `mapstructure:"pingInterval"`
	SendBuffer     int           `mapstructure:"sendBuffer"`
}

type PresenceConfig struct {
	SyncInterval time.Duration `mapstructure:"syncInterval"`
	TTL          time.Duration `mapstructure:"ttl"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracerConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Address     string  `mapstructure:"address"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sampleRatio"`
}
