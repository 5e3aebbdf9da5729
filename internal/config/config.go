// Package config loads process-level configuration (spec §6): the RTC
// port range, listen/announced IPs, the signaling port, and the
// websocket connection tunables, layered viper-defaults-then-file-
// then-flag, in the same shape as the teacher's Load().
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode          string `mapstructure:"mode"`
	SignalPort    int    `mapstructure:"signal_port"`
	SessionSecret string `mapstructure:"secret"`

	ListenIP    string `mapstructure:"listen_ip"`
	AnnouncedIP string `mapstructure:"announced_ip"`
	RTCMinPort  uint16 `mapstructure:"rtc_min_port"`
	RTCMaxPort  uint16 `mapstructure:"rtc_max_port"`

	AudioObserverIntervalMs    int `mapstructure:"audio_observer_interval_ms"`
	AudioObserverThresholdDBFS int `mapstructure:"audio_observer_threshold_dbfs"`

	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (defaulting to "dev"),
// falling back to spec-fixed defaults when no file is present, then
// applies any command-line flag overrides.
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
	v.SetDefault("signal_port", 4001)
	v.SetDefault("secret", "sfucore-dev-secret")
	v.SetDefault("listen_ip", "0.0.0.0")
	v.SetDefault("announced_ip", "127.0.0.1")
	v.SetDefault("rtc_min_port", 40000)
	v.SetDefault("rtc_max_port", 49999)
	v.SetDefault("audio_observer_interval_ms", 800)
	v.SetDefault("audio_observer_threshold_dbfs", -80)
	v.SetDefault("read_limit", 1<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	bindFlags(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("signal_port", cfg.SignalPort).
		Str("announced_ip", cfg.AnnouncedIP).
		Msg("configuration resolved")

	return &cfg, nil
}

func bindFlags(v *viper.Viper) {
	fs := pflag.NewFlagSet("sfucore", pflag.ContinueOnError)
	fs.String("mode", v.GetString("mode"), "server mode (debug|release)")
	fs.Int("signal-port", v.GetInt("signal_port"), "signaling HTTP/WS listen port")
	fs.String("announced-ip", v.GetString("announced_ip"), "public IP announced in ICE candidates")

	_ = fs.Parse(os.Args[1:])

	_ = v.BindPFlag("mode", fs.Lookup("mode"))
	_ = v.BindPFlag("signal_port", fs.Lookup("signal-port"))
	_ = v.BindPFlag("announced_ip", fs.Lookup("announced-ip"))
}
