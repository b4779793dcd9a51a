package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "CAST"

var ErrInvalid = errors.New("invalid config")

type ICEServerConfig struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	WriteWait  time.Duration `mapstructure:"write_wait"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout  time.Duration `mapstructure:"heartbeat_timeout"`

	RateLimit    int           `mapstructure:"rate_limit"`
	RateInterval time.Duration `mapstructure:"rate_interval"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Secret          string        `mapstructure:"secret"`

	ICEServers []ICEServerConfig `mapstructure:"ice_servers"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"port":      "port",
	"mode":      "mode",
	"log-level": "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 9000)
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("send_buffer", 64)
	v.SetDefault("write_wait", "5s")
	v.SetDefault("heartbeat_interval", "30s")
	v.SetDefault("heartbeat_timeout", "60s")
	v.SetDefault("rate_limit", 200)
	v.SetDefault("rate_interval", "1s")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("secret", "cast-dev-secret")
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads path, or config/config.<CONFIG_ENV>.yaml when path is empty.
// A missing file is not an error. Precedence: changed flags, CAST_* env,
// file, defaults.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		path = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", path).Err(err).Msg("config file not loaded, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", path).Msg("loaded config")
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("log_level", cfg.LogLevel).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: mode %q", ErrInvalid, c.Mode)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if c.ReadLimit <= 0 {
		return fmt.Errorf("%w: read_limit must be positive", ErrInvalid)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("%w: send_buffer must be positive", ErrInvalid)
	}
	if c.WriteWait <= 0 {
		return fmt.Errorf("%w: write_wait must be positive", ErrInvalid)
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: heartbeat_interval must be positive", ErrInvalid)
	}
	if c.HeartbeatTimeout < c.HeartbeatInterval {
		return fmt.Errorf("%w: heartbeat_timeout %s shorter than heartbeat_interval %s", ErrInvalid, c.HeartbeatTimeout, c.HeartbeatInterval)
	}
	if c.RateLimit > 0 && c.RateInterval <= 0 {
		return fmt.Errorf("%w: rate_interval must be positive when rate_limit is set", ErrInvalid)
	}
	if _, err := c.WebRTCICEServers(); err != nil {
		return err
	}
	return nil
}

// Level is the parsed log_level; invalid values fall back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// WebRTCICEServers converts and validates the configured ICE servers. TURN
// entries must carry credentials.
func (c *Config) WebRTCICEServers() ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for i, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			return nil, fmt.Errorf("%w: ice_servers[%d]: missing urls", ErrInvalid, i)
		}
		for _, raw := range s.URLs {
			uri, err := stun.ParseURI(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: ice_servers[%d]: %q: %v", ErrInvalid, i, raw, err)
			}
			if uri.Scheme == stun.SchemeTypeTURN || uri.Scheme == stun.SchemeTypeTURNS {
				if s.Username == "" || s.Credential == "" {
					return nil, fmt.Errorf("%w: ice_servers[%d]: turn url requires username and credential", ErrInvalid, i)
				}
			}
		}
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out, nil
}
