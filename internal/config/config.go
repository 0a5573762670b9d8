package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	// Signaling policy
	MaxRoomSize int `mapstructure:"max_room_size"` // 0 = unlimited

	// Audio pipeline
	FlushInterval     time.Duration `mapstructure:"flush_interval"`
	FlushCount        int           `mapstructure:"flush_count"`
	MinFlushBytes     int           `mapstructure:"min_flush_bytes"`
	QueueSize         int           `mapstructure:"queue_size"`
	TranscribeTimeout time.Duration `mapstructure:"transcribe_timeout"`
	KeepTranscripts   bool          `mapstructure:"keep_transcripts"`

	// External collaborators; empty keys select the local stand-ins.
	WhisperURL string `mapstructure:"whisper_url"`
	WhisperKey string `mapstructure:"whisper_key"`
	GeminiKey  string `mapstructure:"gemini_key"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("max_room_size", 0)
	v.SetDefault("flush_interval", "3s")
	v.SetDefault("flush_count", 5)
	v.SetDefault("min_flush_bytes", 2048)
	v.SetDefault("queue_size", 256)
	v.SetDefault("transcribe_timeout", "15s")
	v.SetDefault("keep_transcripts", false)

	v.SetEnvPrefix("MEETRELAY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
