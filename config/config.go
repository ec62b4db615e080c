// Package config loads wsbridge settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/vkviyu/wsbridge/utils/jsonutil"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. WSBRIDGE_CLIENT_URL.
const EnvPrefix = "WSBRIDGE"

type Config struct {
	Client   ClientConfig   `mapstructure:"client" yaml:"client"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Recorder RecorderConfig `mapstructure:"recorder" yaml:"recorder"`
}

type ClientConfig struct {
	URL              string            `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	MaxFrameSize     int               `mapstructure:"max_frame_size" yaml:"max_frame_size" validate:"gt=0"`
	Headers          map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	HandshakeTimeout time.Duration     `mapstructure:"handshake_timeout" yaml:"handshake_timeout" validate:"gte=0"`
	Subprotocols     []string          `mapstructure:"subprotocols" yaml:"subprotocols,omitempty"`
}

type ServerConfig struct {
	Addr      string `mapstructure:"addr" yaml:"addr" validate:"required,hostname_port"`
	Path      string `mapstructure:"path" yaml:"path" validate:"required,startswith=/"`
	PlainPath string `mapstructure:"plain_path" yaml:"plain_path" validate:"omitempty,startswith=/,nefield=Path"`
	Token     string `mapstructure:"token" yaml:"token,omitempty"`
	ReadLimit int64  `mapstructure:"read_limit" yaml:"read_limit" validate:"gte=0"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	// Dir enables rotating JSON log files in addition to stderr.
	Dir        string        `mapstructure:"dir" yaml:"dir,omitempty"`
	RotateTime time.Duration `mapstructure:"rotate_time" yaml:"rotate_time"`
	MaxAge     time.Duration `mapstructure:"max_age" yaml:"max_age"`
}

type RecorderConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend" validate:"oneof=none bbolt badger"`
	Path    string `mapstructure:"path" yaml:"path,omitempty" validate:"required_unless=Backend none"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("client.url", "")
	v.SetDefault("client.max_frame_size", 1<<14)
	v.SetDefault("client.handshake_timeout", 10*time.Second)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.path", "/chat")
	v.SetDefault("server.plain_path", "/plain")
	v.SetDefault("server.token", "")
	v.SetDefault("server.read_limit", 1<<20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.rotate_time", 24*time.Hour)
	v.SetDefault("log.max_age", 30*24*time.Hour)
	v.SetDefault("recorder.backend", "none")
	v.SetDefault("recorder.path", "")
}

// Default returns the configuration with no file, env or flag overrides.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: defaults do not decode: %v", err))
	}
	return cfg
}

// Load reads file (if not empty) and environment overrides into v, then
// decodes and validates the result. Flags should already be bound on v.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("config file %s: %w", file, err)
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	cfg, err := Decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode unmarshals v without validating.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

var ErrInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	if err := jsonutil.ValidateModel(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// HeaderValues returns the client headers as an http.Header.
func (c *ClientConfig) HeaderValues() http.Header {
	h := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}

// YAML renders c as it would appear in a config file.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
