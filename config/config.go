package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Upload  UploadConfig  `mapstructure:"upload"`
	Segment SegmentConfig `mapstructure:"segment"`
	Blend   BlendConfig   `mapstructure:"blend"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize      int64    `mapstructure:"max_size"`
	AllowedTypes []string `mapstructure:"allowed_types"`
}

type SegmentConfig struct {
	Iterations    int       `mapstructure:"iterations"`
	MaxConcurrent int       `mapstructure:"max_concurrent"`
	QueueTimeout  int       `mapstructure:"queue_timeout"`
	MaxDimension  int       `mapstructure:"max_dimension"`
	MaxPixels     int       `mapstructure:"max_pixels"`
	Scales        []float64 `mapstructure:"scales"`
}

type BlendConfig struct {
	Opacity       float64 `mapstructure:"opacity"`
	FeatherRadius int     `mapstructure:"feather_radius"`
}

// Load reads configuration from a YAML file.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New loads the default config path, falling back to built-in defaults
// when the file is absent.
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		return getDefaultConfig()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 24*time.Hour)

	v.SetDefault("upload.max_size", 10*1024*1024)
	v.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/jpg"})

	v.SetDefault("segment.iterations", 5)
	v.SetDefault("segment.max_concurrent", 3)
	v.SetDefault("segment.queue_timeout", 30)
	v.SetDefault("segment.max_dimension", 1200)
	v.SetDefault("segment.max_pixels", 4096*4096)
	v.SetDefault("segment.scales", []float64{0.5, 0.25})

	v.SetDefault("blend.opacity", 0.85)
	v.SetDefault("blend.feather_radius", 5)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:      10 * 1024 * 1024,
			AllowedTypes: []string{"image/jpeg", "image/png", "image/jpg"},
		},
		Segment: SegmentConfig{
			Iterations:    5,
			MaxConcurrent: 3,
			QueueTimeout:  30,
			MaxDimension:  1200,
			MaxPixels:     4096 * 4096,
			Scales:        []float64{0.5, 0.25},
		},
		Blend: BlendConfig{
			Opacity:       0.85,
			FeatherRadius: 5,
		},
	}
}
